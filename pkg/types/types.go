package types

import "time"

// Environment is the fully loaded, immutable world a play acts on: every
// ship, registry, service and container instance the loader produced from
// the YAML document. The dependency graph is built from it separately by
// pkg/graph and is not stored here.
type Environment struct {
	Name       string
	Ships      map[string]*Ship
	Registries map[string]*Registry
	Services   map[string]*Service
}

// Ship is a reachable Docker daemon. Ships are created at load time and
// are immutable for the duration of a play; the daemon client bound to a
// ship is acquired lazily by pkg/docker and kept alive for the play.
type Ship struct {
	Name      string
	Address   string
	Endpoint  string // overrides Address for the daemon connection, if set
	Transport TransportKind
	SSH       *SSHConfig
	TLS       *TLSConfig
	Socket    string // unix socket path, when Transport == TransportUnix
	APIVersion string // "auto" or an explicit Docker API version
	Timeout   time.Duration
}

// TransportKind selects how shipyard dials a ship's Docker daemon.
type TransportKind string

const (
	TransportTCP    TransportKind = "tcp"
	TransportTLS    TransportKind = "tls"
	TransportUnix   TransportKind = "unix"
	TransportSSH    TransportKind = "ssh"
)

// SSHConfig carries the parameters of an SSH tunnel transport.
type SSHConfig struct {
	User       string
	Port       int
	PrivateKey string // path to the key file
}

// TLSConfig carries the parameters of a TLS transport.
type TLSConfig struct {
	CAFile     string
	CertFile   string
	KeyFile    string
	Verify     bool
}

// Registry holds the credentials shipyard presents when pulling an image
// whose repository resolves to this registry's host.
type Registry struct {
	URL      string
	Username string
	Password string // may be AES-256-GCM ciphertext, see pkg/registry
	Email    string
	PullRetry *RetryPolicy
}

// RetryPolicy bounds how many times shipyard retries a pull or login, and
// which HTTP statuses are worth retrying at all.
type RetryPolicy struct {
	MaxAttempts int
	RetryOn     []int // HTTP status codes that trigger a retry
}

// Service is a named, environment-unique collection of container
// instances that share defaults: image, ports, env, lifecycle checks and
// dependency declarations.
type Service struct {
	Name            string
	Image           string // may be parameterized per instance
	Ports           []Port
	Env             map[string]interface{} // already overlaid on top of EnvFiles by the loader
	EnvFiles        []string                // resolved absolute paths, declaration order; informational only
	LifecycleChecks []LifecycleCheck
	Requires        []string // hard dependencies: service names
	WantsInfo       []string // soft dependencies: env-var visibility only
	Omit            bool     // excluded from "all" selections, still a valid dependency target
	Instances       []*Container
}

// Container is a single runnable unit of a Service: one entry in the
// dependency graph and the unit of work a play schedules.
type Container struct {
	Name          string
	Service       string // owning service name
	Ship          string
	Image         string // effective image: instance override, else service image
	Ports         []Port
	Volumes       []VolumeBinding
	ContainerVolumes []string // container-only volume paths, no host bind
	VolumesFrom   []string   // peer container names, implies same-ship hard dependency
	Env           map[string]interface{}
	LifecycleChecks []LifecycleCheck
	Resources     ResourceLimits
	NetworkMode   string
	DNS           []string
	RestartPolicy RestartPolicy
	SecurityOpts  []string
	Labels        map[string]string
	StopTimeout   time.Duration
	Command       []string
	User          string
	Workdir       string
	ReadOnlyRoot  bool
	ExtraHosts    []string
	LogDriver     string
	LogOptions    map[string]string
	Links         map[string]string
}

// Port is a named triple of external and internal port specs. Ports are
// named (not numbered) so that peers can resolve them by name from the
// environment-variable projector.
type Port struct {
	Name     string
	External PortSpec
	Internal PortSpec
	Protocol string // "tcp" or "udp"
}

// PortSpec carries a port or port range and an optional bind address.
type PortSpec struct {
	Bind string // bind address, empty means all interfaces
	Port string // a single port ("8080") or a range ("8080-8090")
}

// VolumeBinding is a host-path to container-path bind mount.
type VolumeBinding struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ResourceLimits bounds a container's CPU, memory and swap, and carries
// any ulimit overrides.
type ResourceLimits struct {
	MemoryBytes int64
	SwapBytes   int64
	CPUShares   int64
	Ulimits     []Ulimit
}

// Ulimit is a single soft/hard ulimit override.
type Ulimit struct {
	Name string
	Soft int64
	Hard int64
}

// RestartPolicy controls what the daemon does when a container exits.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaxRetryCount     int
}

// LifecycleCheck is a single probe bound to a slot ("running" or
// "stopped") that gates a container action's success.
type LifecycleCheck struct {
	Slot       string // "running" or "stopped"
	Type       CheckType
	Host       string
	Port       string // numeric literal or a named port
	Scheme     string
	Method     string
	Path       string
	MatchRegex string
	Command    []string
	Seconds    int // for CheckSleep
	MaxWait    time.Duration
	Attempts   int
}

// CheckType names a lifecycle check implementation.
type CheckType string

const (
	CheckTCP   CheckType = "tcp"
	CheckHTTP  CheckType = "http"
	CheckExec  CheckType = "exec"
	CheckRexec CheckType = "rexec"
	CheckSleep CheckType = "sleep"
)

// ContainerState is a state observed from the Docker daemon, as opposed
// to a desired/target state computed by a play.
type ContainerState string

const (
	StateAbsent  ContainerState = "absent"
	StateCreated ContainerState = "created"
	StateRunning ContainerState = "running"
	StateStopped ContainerState = "stopped"
)

// Observation is a snapshot of a container's state on its ship, as
// reported by the Docker adapter.
type Observation struct {
	State       ContainerState
	ContainerID string
	Image       string // the image the running container was created from
	ExitCode    int
	FinishedAt  time.Time
	StartedAt   time.Time
	Ports       map[string]int // port name -> external port number
}

// Action is an operation a play can carry out against a container.
type Action string

const (
	ActionPull    Action = "pull"
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionKill    Action = "kill"
	ActionRestart Action = "restart"
	ActionClean   Action = "clean"
	ActionLogs    Action = "logs"
	ActionStatus  Action = "status"
)

// Direction is the ordering direction a play walks the dependency graph in.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
	DirectionNone    Direction = "none"
)

// OrderingDirection returns the layer-ordering direction mandated for action.
func OrderingDirection(action Action) Direction {
	switch action {
	case ActionStart, ActionRestart, ActionPull:
		return DirectionForward
	case ActionStop, ActionKill, ActionClean:
		return DirectionReverse
	case ActionStatus, ActionLogs:
		return DirectionNone
	default:
		return DirectionNone
	}
}

// Outcome is the terminal result recorded for a single container's action
// within a play.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAlready Outcome = "already"
	OutcomeFailed  Outcome = "failed"
)

// Result is the per-container record a play produces for one action.
type Result struct {
	Container string
	Action    Action
	Outcome   Outcome
	Reason    string
	StartedAt time.Time
	EndedAt   time.Time
}
