package msgparty

type VersionMarker byte

const v1 = VersionMarker(0x1)

// Kind is the outer tag of every packet; requests and their replies are separate families.
type Kind byte

const (
	KindMessage  = Kind(0x00)
	KindResponse = Kind(0x01)
)

type MessageType byte

const (
	FindLobbyMessage    = MessageType(0x00)
	CreateLobbyMessage  = MessageType(0x01)
	NewClientMessage    = MessageType(0x02)
	AuthMessage         = MessageType(0x03)
	GetLastOrderMessage = MessageType(0x04)
	NewOrderMessage     = MessageType(0x05)
	VibeCheckMessage    = MessageType(0x06)
	PingMessage         = MessageType(0x07)
)

type ResponseType byte

const (
	FoundLobbyResponse   = ResponseType(0x00)
	NoLobbyResponse      = ResponseType(0x01)
	CreatedLobbyResponse = ResponseType(0x02)
	AuthAcceptedResponse = ResponseType(0x03)
	FailedAuthResponse   = ResponseType(0x04)
	PongResponse         = ResponseType(0x05)
)

// headerLen is version (1) + kind (1) + type (1)
const headerLen = 3
