// Package protocol defines the framed messages exchanged when sharing
// bundles.
package protocol

type MessageType uint8

const (
	MessageTypeRequest MessageType = 1
	MessageTypeBundle  MessageType = 2
	MessageTypeError   MessageType = 3
	MessageTypeClose   MessageType = 4
	MessageTypeList    MessageType = 5
	MessageTypeCatalog MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeBundle:
		return "BUNDLE"
	case MessageTypeError:
		return "ERROR"
	case MessageTypeClose:
		return "CLOSE"
	case MessageTypeList:
		return "LIST"
	case MessageTypeCatalog:
		return "CATALOG"
	default:
		return "UNKNOWN"
	}
}

func (t MessageType) valid() bool {
	return t >= MessageTypeRequest && t <= MessageTypeCatalog
}
