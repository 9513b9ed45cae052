package network

// 消息类型
const (
	MsgTypeHeartbeat = 1

	// client -> server: {"action": ..., "data": {...}}
	MsgTypeAction = 201
	// server -> client: the dispatch response for one action
	MsgTypeActionResult = 202

	// server -> client: the player's redacted view after every change
	MsgTypeRoomState  = 301
	MsgTypeRoomClosed = 302

	MsgTypeError = 401
)

// MsgName is used in logs and metrics labels.
func MsgName(msgID uint16) string {
	switch msgID {
	case MsgTypeHeartbeat:
		return "heartbeat"
	case MsgTypeAction:
		return "action"
	case MsgTypeActionResult:
		return "action_result"
	case MsgTypeRoomState:
		return "room_state"
	case MsgTypeRoomClosed:
		return "room_closed"
	case MsgTypeError:
		return "error"
	default:
		return "unknown"
	}
}
