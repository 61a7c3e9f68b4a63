// Package texture runs the optimizer over texture images and whole packs.
package texture
