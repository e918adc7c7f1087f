package network

// Message IDs. 1xx are client room-management requests, 2xx are
// gameplay actions, 3xx are server pushes, 4xx are errors.
const (
	MsgTypeHeartbeat uint16 = 1

	MsgTypeCreateRoom uint16 = 101
	MsgTypeJoinRoom   uint16 = 102
	MsgTypeLeaveRoom  uint16 = 103
	MsgTypeListRooms  uint16 = 104
	MsgTypeStartGame  uint16 = 105
	MsgTypeGetState   uint16 = 106

	MsgTypeMove         uint16 = 201
	MsgTypeKill         uint16 = 202
	MsgTypeCompleteTask uint16 = 203
	MsgTypeReportBody   uint16 = 204
	MsgTypeCallMeeting  uint16 = 205
	MsgTypeCastVote     uint16 = 206
	MsgTypeSabotage     uint16 = 207

	MsgTypeRoomCreated    uint16 = 301
	MsgTypeRoomJoined     uint16 = 302
	MsgTypePlayerJoined   uint16 = 303
	MsgTypePlayerLeft     uint16 = 304
	MsgTypeRoomList       uint16 = 305
	MsgTypeGameStarted    uint16 = 306
	MsgTypePlayerMoved    uint16 = 307
	MsgTypePlayerKilled   uint16 = 308
	MsgTypeTaskCompleted  uint16 = 309
	MsgTypeMeetingCalled  uint16 = 310
	MsgTypeVoteCast       uint16 = 311
	MsgTypeVotingComplete uint16 = 312
	MsgTypeGameEnded      uint16 = 313
	MsgTypeSabotageAlert  uint16 = 314
	MsgTypeStateSnapshot  uint16 = 315

	MsgTypeError uint16 = 401
)

// Error kinds surfaced to the requesting caller, never broadcast.
const (
	KindNotFound      = "not-found"
	KindInvalidState  = "invalid-state"
	KindUnauthorized  = "unauthorized"
	KindInvalidInput  = "invalid-input"
	KindInvalidAction = "invalid-action"
)
