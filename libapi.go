package corert

import (
	runtimepkg "github.com/drblury/corert/internal/runtime"
	configpkg "github.com/drblury/corert/internal/runtime/config"
	errspkg "github.com/drblury/corert/internal/runtime/errors"
	idspkg "github.com/drblury/corert/internal/runtime/ids"
	jsoncodec "github.com/drblury/corert/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	metadatapkg "github.com/drblury/corert/internal/runtime/metadata"
	"github.com/drblury/corert/internal/runtime/syncx"
	transportpkg "github.com/drblury/corert/internal/runtime/transport"
)

type (
	Config  = configpkg.Config
	Runtime = runtimepkg.Runtime
	Option  = runtimepkg.Option
	Phase   = runtimepkg.Phase
	Clock   = runtimepkg.Clock

	Module     = runtimepkg.Module
	ModuleFunc = runtimepkg.ModuleFunc

	Task        = runtimepkg.Task
	TaskFunc    = runtimepkg.TaskFunc
	TaskContext = runtimepkg.TaskContext
	TaskHooks   = runtimepkg.TaskHooks
	PoolStats   = runtimepkg.PoolStats
	PoolMetrics = runtimepkg.PoolMetrics

	AllocFunc  = runtimepkg.AllocFunc
	FreeFunc   = runtimepkg.FreeFunc
	AllocHooks = runtimepkg.AllocHooks

	State         = runtimepkg.State
	ResourceUsage = runtimepkg.ResourceUsage

	EventKind = runtimepkg.EventKind

	Level         = loggingpkg.Level
	Sink          = loggingpkg.Sink
	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	Metadata = metadatapkg.Metadata

	ModuleError    = errspkg.ModuleError
	ModulePhase    = errspkg.Phase
	TaskPanicError = errspkg.TaskPanicError

	Mutex  = syncx.Mutex
	Cond   = syncx.Cond
	Thread = syncx.Thread

	Transport         = transportpkg.Transport
	TransportBuilder  = transportpkg.Builder
	TransportConfig   = transportpkg.Config
	TransportRegistry = transportpkg.Registry
	EventRecord       = transportpkg.Record
	SQLJournal        = transportpkg.SQLJournal
)

var (
	Init          = runtimepkg.Init
	DefaultConfig = configpkg.Default

	WithLogger            = runtimepkg.WithLogger
	WithSink              = runtimepkg.WithSink
	WithAllocHooks        = runtimepkg.WithAllocHooks
	WithModules           = runtimepkg.WithModules
	WithTaskHooks         = runtimepkg.WithTaskHooks
	WithEventPublisher    = runtimepkg.WithEventPublisher
	WithMetricsRegisterer = runtimepkg.WithMetricsRegisterer
	WithClock             = runtimepkg.WithClock
	WithTransportRegistry = runtimepkg.WithTransportRegistry

	NewModule = runtimepkg.NewModule

	// Task lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	AlertingHooks = runtimepkg.AlertingHooks

	NewPoolMetrics = runtimepkg.NewPoolMetrics

	APIVersion = runtimepkg.APIVersion
	NowMs      = runtimepkg.NowMs
	NewClock   = runtimepkg.NewClock

	NewEventMessage = runtimepkg.NewEventMessage
	DecodeEvent     = runtimepkg.DecodeEvent

	// Synchronization primitives
	NewMutex    = syncx.NewMutex
	NewCond     = syncx.NewCond
	SpawnThread = syncx.Spawn

	ParseLevel             = loggingpkg.ParseLevel
	DefaultSink            = loggingpkg.DefaultSink
	NewDefaultLogger       = loggingpkg.NewDefaultLogger
	NewSinkServiceLogger   = loggingpkg.NewSinkServiceLogger
	NewSlogServiceLogger   = loggingpkg.NewSlogServiceLogger
	NewZapServiceLogger    = loggingpkg.NewZapServiceLogger
	NewWatermillAdapter    = loggingpkg.NewWatermillAdapter
	NewWatermillLogger     = loggingpkg.NewWatermillServiceLogger

	// Events transports. Import nothing extra: every backend is registered
	// in DefaultTransportRegistry.
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	NewTransportRegistry     = transportpkg.NewRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	NewSQLiteJournal         = transportpkg.NewSQLiteJournal
	NewPostgresJournal       = transportpkg.NewPostgresJournal

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal
	Encode    = jsoncodec.Encode
	Decode    = jsoncodec.Decode

	NewMetadata = metadatapkg.New
	CreateULID  = idspkg.CreateULID

	ErrAllocationFailure   = errspkg.ErrAllocationFailure
	ErrInvalidArgument     = errspkg.ErrInvalidArgument
	ErrRuntimeNotReady     = errspkg.ErrRuntimeNotReady
	ErrQueueClosed         = errspkg.ErrQueueClosed
	ErrModuleInitFailure   = errspkg.ErrModuleInitFailure
	ErrSyncPrimitiveMisuse = errspkg.ErrSyncPrimitiveMisuse

	// Code maps an error onto the integer status codes below.
	Code = errspkg.Code
)

// Log levels.
const (
	LevelTrace = loggingpkg.LevelTrace
	LevelDebug = loggingpkg.LevelDebug
	LevelInfo  = loggingpkg.LevelInfo
	LevelWarn  = loggingpkg.LevelWarn
	LevelError = loggingpkg.LevelError
)

// Lifecycle phases.
const (
	PhaseStarting     = runtimepkg.PhaseStarting
	PhaseReady        = runtimepkg.PhaseReady
	PhaseShuttingDown = runtimepkg.PhaseShuttingDown
	PhaseStopped      = runtimepkg.PhaseStopped
)

// Status codes returned by Code.
const (
	CodeOK                  = errspkg.CodeOK
	CodeAllocationFailure   = errspkg.CodeAllocationFailure
	CodeInvalidArgument     = errspkg.CodeInvalidArgument
	CodeRuntimeNotReady     = errspkg.CodeRuntimeNotReady
	CodeQueueClosed         = errspkg.CodeQueueClosed
	CodeModuleInitFailure   = errspkg.CodeModuleInitFailure
	CodeSyncPrimitiveMisuse = errspkg.CodeSyncPrimitiveMisuse
	CodeUnknown             = errspkg.CodeUnknown
)

// Lifecycle event kinds.
const (
	EventRuntimeStarted  = runtimepkg.EventRuntimeStarted
	EventRuntimeStopping = runtimepkg.EventRuntimeStopping
	EventRuntimeStopped  = runtimepkg.EventRuntimeStopped
	EventModuleStarted   = runtimepkg.EventModuleStarted
	EventModuleFailed    = runtimepkg.EventModuleFailed
	EventModuleStopped   = runtimepkg.EventModuleStopped
	EventTaskFailed      = runtimepkg.EventTaskFailed
	EventTasksDropped    = runtimepkg.EventTasksDropped
)

// Metadata keys stamped on every lifecycle event message.
const (
	MetadataKeyEvent     = metadatapkg.KeyEvent
	MetadataKeyRuntime   = metadatapkg.KeyRuntime
	MetadataKeyRuntimeID = metadatapkg.KeyRuntimeID
	MetadataKeyModule    = metadatapkg.KeyModule
	MetadataKeyTaskID    = metadatapkg.KeyTaskID
)

// Transport names accepted by Config.EventsSystem.
const (
	TransportChannel   = transportpkg.ChannelName
	TransportKafka     = transportpkg.KafkaName
	TransportRabbitMQ  = transportpkg.RabbitMQName
	TransportNATS      = transportpkg.NATSName
	TransportJetStream = transportpkg.JetStreamName
	TransportHTTP      = transportpkg.HTTPName
	TransportIO        = transportpkg.IOName
	TransportSQLite    = transportpkg.SQLiteName
	TransportPostgres  = transportpkg.PostgresName
	TransportAWS       = transportpkg.AWSName
)
