package loader

import "time"

// rawDocument mirrors the environment document's on-disk shape, before
// schema normalization and before becoming pkg/types.Environment.
type rawDocument struct {
	Schema       int                    `yaml:"__shipyard.schema"`
	Name         string                 `yaml:"name"`
	Registries   map[string]rawRegistry `yaml:"registries"`
	ShipDefaults rawShip                `yaml:"ship_defaults"`
	Ships        map[string]rawShip     `yaml:"ships"`
	Services     map[string]rawService  `yaml:"services"`
}

type rawRegistry struct {
	URL       string        `yaml:"url"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Email     string        `yaml:"email"`
	PullRetry *rawRetry     `yaml:"pull_retry"`
}

type rawRetry struct {
	MaxAttempts int   `yaml:"max_attempts"`
	RetryOn     []int `yaml:"retry_on"`
}

type rawShip struct {
	Address    string   `yaml:"address"`
	Endpoint   string   `yaml:"endpoint"`
	Transport  string   `yaml:"transport"`
	SSH        *rawSSH  `yaml:"ssh"`
	TLS        *rawTLS  `yaml:"tls"`
	Socket     string   `yaml:"socket"`
	APIVersion string   `yaml:"api_version"`
	Timeout    string   `yaml:"timeout"`
}

type rawSSH struct {
	User       string `yaml:"user"`
	Port       int    `yaml:"port"`
	PrivateKey string `yaml:"private_key"`
}

type rawTLS struct {
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	Verify   bool   `yaml:"verify"`
}

type rawService struct {
	Image           string                    `yaml:"image"`
	Ports           []rawPort                 `yaml:"ports"`
	Env             map[string]interface{}    `yaml:"env"`
	EnvFiles        []string                  `yaml:"env_files"`
	LifecycleChecks []rawCheck                `yaml:"lifecycle_checks"`
	Requires        []string                  `yaml:"requires"`
	WantsInfo       []string                  `yaml:"wants_info"`
	Omit            bool                      `yaml:"omit"`
	Instances       map[string]rawInstance    `yaml:"instances"`
}

type rawInstance struct {
	Ship             string                 `yaml:"ship"`
	Image            string                 `yaml:"image"`
	Ports            []rawPort              `yaml:"ports"`
	Volumes          []string               `yaml:"volumes"`
	ContainerVolumes []string               `yaml:"container_volumes"`
	VolumesFrom      []string               `yaml:"volumes_from"`
	Env              map[string]interface{} `yaml:"env"`
	LifecycleChecks  []rawCheck             `yaml:"lifecycle_checks"`
	Resources        rawResources           `yaml:"resources"`
	NetworkMode      string                 `yaml:"network_mode"`
	DNS              []string               `yaml:"dns"`
	RestartPolicy    rawRestartPolicy       `yaml:"restart"`
	SecurityOpts     []string               `yaml:"security_opts"`
	Labels           map[string]string      `yaml:"labels"`
	StopTimeout      string                 `yaml:"stop_timeout"`
	Command          []string               `yaml:"command"`
	User             string                 `yaml:"user"`
	Workdir          string                 `yaml:"workdir"`
	ReadOnlyRoot     bool                   `yaml:"read_only_root"`
	ExtraHosts       []string               `yaml:"extra_hosts"`
	LogDriver        string                 `yaml:"log_driver"`
	LogOptions       map[string]string      `yaml:"log_options"`
	Links            map[string]string      `yaml:"links"`
}

type rawPort struct {
	Name     string `yaml:"name"`
	External string `yaml:"external"`
	Internal string `yaml:"internal"`
	Protocol string `yaml:"protocol"`
}

type rawCheck struct {
	Slot       string   `yaml:"slot"`
	Type       string   `yaml:"type"`
	Host       string   `yaml:"host"`
	Port       string   `yaml:"port"`
	Scheme     string   `yaml:"scheme"`
	Method     string   `yaml:"method"`
	Path       string   `yaml:"path"`
	MatchRegex string   `yaml:"match_regex"`
	Command    []string `yaml:"command"`
	Seconds    int      `yaml:"seconds"`
	MaxWait    string   `yaml:"max_wait"`
	Attempts   int      `yaml:"attempts"`
}

type rawResources struct {
	Memory    string        `yaml:"memory"`
	Swap      string        `yaml:"swap"`
	CPUShares int64         `yaml:"cpu_shares"`
	Ulimits   []rawUlimit   `yaml:"ulimits"`
}

type rawUlimit struct {
	Name string `yaml:"name"`
	Soft int64  `yaml:"soft"`
	Hard int64  `yaml:"hard"`
}

type rawRestartPolicy struct {
	Name          string `yaml:"name"`
	MaxRetryCount int    `yaml:"max_retry_count"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
