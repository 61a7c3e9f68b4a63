// Package credits carries the attribution strings shown by TXPacker front ends.
package credits

const (
	team       = "from the NoxPE Team"
	developers = "lyssadev & chifft"
)

// Team returns the team credit line.
func Team() string { return team }

// Developers returns the developer credit line.
func Developers() string { return developers }

// Verify reports whether both credit lines are present.
func Verify() bool { return Team() != "" && Developers() != "" }
