package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

// Arguments that must be handled before the flag set is parsed.
const (
	argConfigPath = "--config-path="
	argVersion    = "--version"
)

// Options are the configuration options of the daemon, read from the YAML
// configuration file and overridden by command-line flags.
type Options struct {
	// LogOutput is the path to the log file.  Empty means stdout.
	LogOutput string `yaml:"output"`

	// Interfaces is the list of literal interface addresses to listen on.
	// Empty means loopback, or the wildcards in automatic mode.
	Interfaces []string `yaml:"interfaces"`

	// ListenPort is the listening port for both UDP and TCP.
	ListenPort int `yaml:"listen-port"`

	// TCPAcceptConcurrency is the number of simultaneously served
	// connections per TCP listener.  Zero disables TCP.
	TCPAcceptConcurrency int `yaml:"tcp-accept-concurrency"`

	// BufferSize is the receive buffer size, in bytes.
	BufferSize int `yaml:"buffer-size"`

	// UDP and TCP enable the transports.
	UDP bool `yaml:"udp"`
	TCP bool `yaml:"tcp"`

	// IPv4 and IPv6 enable the address families.
	IPv4 bool `yaml:"ipv4"`
	IPv6 bool `yaml:"ipv6"`

	// InterfaceAutomatic enables automatic-interface provisioning.
	InterfaceAutomatic bool `yaml:"interface-automatic"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// defaultOptions returns the default options of the daemon.
func defaultOptions() (opts *Options) {
	return &Options{
		ListenPort:           53,
		TCPAcceptConcurrency: 10,
		BufferSize:           dns.MaxMsgSize,
		UDP:                  true,
		TCP:                  true,
		IPv4:                 true,
		IPv6:                 true,
	}
}

// parseOptions parses the configuration file, if any, and the command-line
// arguments, the latter taking precedence.
func parseOptions(args []string) (opts *Options, showVer bool, err error) {
	opts = defaultOptions()

	// The config path has to be read before the flag set is parsed so that
	// flags override the file and not the other way around.
	for _, arg := range args {
		if strings.HasPrefix(arg, argConfigPath) {
			err = parseConfigFile(opts, strings.TrimPrefix(arg, argConfigPath))
			if err != nil {
				return nil, false, fmt.Errorf("parsing config file: %w", err)
			}
		} else if arg == argVersion {
			showVer = true
		}
	}

	fs := flag.NewFlagSet("dnslisten", flag.ContinueOnError)

	// Consumed above; registered so that parsing doesn't fail on them.
	_ = fs.String("config-path", "", "YAML configuration file path.")
	_ = fs.Bool("version", false, "Print the version and exit.")

	fs.StringVar(&opts.LogOutput, "output", opts.LogOutput,
		"Path to the log file.  If not set, write to stdout.")
	fs.Var(newStringSliceValue(&opts.Interfaces), "listen",
		"Interface address to listen on; may be specified multiple times.")
	fs.IntVar(&opts.ListenPort, "port", opts.ListenPort,
		"Listening port for both UDP and TCP.")
	fs.IntVar(&opts.TCPAcceptConcurrency, "tcp-accept-concurrency", opts.TCPAcceptConcurrency,
		"Number of simultaneously served connections per TCP listener; zero disables TCP.")
	fs.IntVar(&opts.BufferSize, "buffer-size", opts.BufferSize,
		"Receive buffer size, in bytes.")
	fs.BoolVar(&opts.UDP, "udp", opts.UDP, "Enable the UDP listeners.")
	fs.BoolVar(&opts.TCP, "tcp", opts.TCP, "Enable the TCP listeners.")
	fs.BoolVar(&opts.IPv4, "ipv4", opts.IPv4, "Listen on IPv4 addresses.")
	fs.BoolVar(&opts.IPv6, "ipv6", opts.IPv6, "Listen on IPv6 addresses.")
	fs.BoolVar(&opts.InterfaceAutomatic, "interface-automatic", opts.InterfaceAutomatic,
		"Bind wildcard sockets and detect the destination address of each query.")
	fs.BoolVar(&opts.Verbose, "verbose", opts.Verbose, "Enable debug logging.")

	err = fs.Parse(args)
	if err != nil {
		return nil, false, err
	}

	return opts, showVer, nil
}

// parseConfigFile fills opts with the settings from the file at confPath.
func parseConfigFile(opts *Options, confPath string) (err error) {
	// #nosec G304 -- Trust the file path that is given in the args.
	b, err := os.ReadFile(confPath)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	err = yaml.Unmarshal(b, opts)
	if err != nil {
		return fmt.Errorf("unmarshalling file: %w", err)
	}

	return nil
}

// stringSliceValue is a repeatable string flag collecting its values into a
// slice.
type stringSliceValue struct {
	// values is the pointer to the slice to store parsed values.
	values *[]string

	// isSet is false until the corresponding flag is met for the first time.
	// When the flag is found, the default value is overwritten with the
	// parsed one.
	isSet bool
}

// newStringSliceValue returns a new *stringSliceValue writing into p.
func newStringSliceValue(p *[]string) (out *stringSliceValue) {
	return &stringSliceValue{
		values: p,
	}
}

// type check
var _ flag.Value = (*stringSliceValue)(nil)

// Set implements the [flag.Value] interface for *stringSliceValue.
func (v *stringSliceValue) Set(s string) (err error) {
	if !v.isSet {
		v.isSet = true
		*v.values = nil
	}

	*v.values = append(*v.values, s)

	return nil
}

// String implements the [flag.Value] interface for *stringSliceValue.
func (v *stringSliceValue) String() (out string) {
	if v == nil || v.values == nil {
		return ""
	}

	return strings.Join(*v.values, ",")
}
