// Package codec implements the Message Codec (§4.1): the wire-level
// (opcode, payload) envelope and the typed payload variants named in the
// opcode table (§6). Decoding never fails the connection — an unparseable
// payload yields a decode error that the caller logs and drops.
package codec

// Opcode identifies a wire message type (§6).
type Opcode uint16

const (
	Handshake     Opcode = 1
	Chat          Opcode = 2
	PlayerStatus  Opcode = 3
	PlayerColor   Opcode = 4
	Vessel        Opcode = 10
	VesselProto   Opcode = 11
	VesselUpdate  Opcode = 12
	VesselRemove  Opcode = 13
	Kerbal        Opcode = 20
	AdminCommand  Opcode = 27
	Settings      Opcode = 30
	Warp          Opcode = 40
	Lock          Opcode = 50
	Scenario      Opcode = 60
	ShareProgress Opcode = 70

	GroupCreate Opcode = 80
	GroupRemove Opcode = 81
	GroupUpdate Opcode = 82
	GroupList   Opcode = 83

	CraftUpload   Opcode = 90
	CraftDownload Opcode = 91
	CraftList     Opcode = 92
	CraftDelete   Opcode = 93
	CraftNotify   Opcode = 94

	ScreenshotUpload   Opcode = 100
	ScreenshotDownload Opcode = 101
	ScreenshotList     Opcode = 102
	ScreenshotNotify   Opcode = 103

	FlagUpload Opcode = 110
	FlagList   Opcode = 111
)

// String renders the opcode's mnemonic for logging.
func (o Opcode) String() string {
	switch o {
	case Handshake:
		return "HANDSHAKE"
	case Chat:
		return "CHAT"
	case PlayerStatus:
		return "PLAYER_STATUS"
	case PlayerColor:
		return "PLAYER_COLOR"
	case Vessel:
		return "VESSEL"
	case VesselProto:
		return "VESSEL_PROTO"
	case VesselUpdate:
		return "VESSEL_UPDATE"
	case VesselRemove:
		return "VESSEL_REMOVE"
	case Kerbal:
		return "KERBAL"
	case AdminCommand:
		return "ADMIN_COMMAND"
	case Settings:
		return "SETTINGS"
	case Warp:
		return "WARP"
	case Lock:
		return "LOCK"
	case Scenario:
		return "SCENARIO"
	case ShareProgress:
		return "SHARE_PROGRESS"
	case GroupCreate:
		return "GROUP_CREATE"
	case GroupRemove:
		return "GROUP_REMOVE"
	case GroupUpdate:
		return "GROUP_UPDATE"
	case GroupList:
		return "GROUP_LIST"
	case CraftUpload:
		return "CRAFT_UPLOAD"
	case CraftDownload:
		return "CRAFT_DOWNLOAD"
	case CraftList:
		return "CRAFT_LIST"
	case CraftDelete:
		return "CRAFT_DELETE"
	case CraftNotify:
		return "CRAFT_NOTIFY"
	case ScreenshotUpload:
		return "SCREENSHOT_UPLOAD"
	case ScreenshotDownload:
		return "SCREENSHOT_DOWNLOAD"
	case ScreenshotList:
		return "SCREENSHOT_LIST"
	case ScreenshotNotify:
		return "SCREENSHOT_NOTIFY"
	case FlagUpload:
		return "FLAG_UPLOAD"
	case FlagList:
		return "FLAG_LIST"
	default:
		return "UNKNOWN"
	}
}
