package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Redis           Category = "Redis"
	MongoDB         Category = "MongoDB"
	Postgres        Category = "Postgres"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Realtime        Category = "Realtime"
	Security        Category = "Security"
	Store           Category = "Store"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"
	Api             SubCategory = "Api"

	// Realtime
	Connect    SubCategory = "Connect"
	Disconnect SubCategory = "Disconnect"
	Join       SubCategory = "Join"
	Leave      SubCategory = "Leave"
	Send       SubCategory = "Send"
	Delivery   SubCategory = "Delivery"

	// Security
	PolicyViolation SubCategory = "PolicyViolation"

	// Store and messaging
	Append    SubCategory = "Append"
	Fetch     SubCategory = "Fetch"
	Migration SubCategory = "Migration"
	Publish   SubCategory = "Publish"
	Consume   SubCategory = "Consume"
	Audit     SubCategory = "Audit"
)

const (
	AppName       ExtraKey = "AppName"
	LoggerName    ExtraKey = "Logger"
	ClientIp      ExtraKey = "ClientIp"
	HostIp        ExtraKey = "HostIp"
	Method        ExtraKey = "Method"
	StatusCode    ExtraKey = "StatusCode"
	BodySize      ExtraKey = "BodySize"
	Path          ExtraKey = "Path"
	Latency       ExtraKey = "Latency"
	RequestID     ExtraKey = "RequestId"
	ErrorMessage  ExtraKey = "ErrorMessage"
	ConnectionID  ExtraKey = "ConnectionId"
	ParticipantID ExtraKey = "ParticipantId"
	RoomID        ExtraKey = "RoomId"
	Rooms         ExtraKey = "Rooms"
	MessageID     ExtraKey = "MessageId"
	Recipients    ExtraKey = "Recipients"
	Reason        ExtraKey = "Reason"
	Driver        ExtraKey = "Driver"
)
