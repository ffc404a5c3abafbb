package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/novanet-dev/nova-incentive-server/constdef"
	"github.com/novanet-dev/nova-incentive-server/utils"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "nova-incentive-server.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "nova-incentive-server.log"
	defaultLogLevel       = "info"
	defaultListenerPort   = "28777"
	defaultRPCLimitUser   = "user"
	defaultRPCLimitPass   = "user"
	defaultMaxRPCClients  = 10000
	defaultMaxWebsockets  = 10000
	defaultDbAddress      = "127.0.0.1:3306"
	defaultDatabaseName   = "nova_incentive"
	defaultLedgerRPCPort  = "28332"
)

var (
	defaultHomeDir     = utils.AppDataDir("nova-incentive-server", false)
	localConfigFile    = defaultConfigFilename
	localServerKeyFile = "server.key"
	localServerCert    = "server.cert"
	defaultLogDir      = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for the incentive server.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	LogDir     string `long:"logdir" description:"Directory to log output."`
	WorkingDir string `long:"workingdir" description:"Working directory"`

	DbUsername          string `long:"dbusername" description:"Username which is used to connect with database"`
	DbPassword          string `long:"dbpassword" description:"Password which is used to connect with database"`
	DbAddress           string `long:"dbaddress" description:"IP address and port of database (default: 127.0.0.1:3306)"`
	DbName              string `long:"dbname" description:"Name of server database (default: nova_incentive)"`
	DisableAutoCreateDB bool   `long:"noautocreatedb" description:"Disable creating database and tables automatically"`

	Listeners        []string `long:"listen" description:"Add an interface/port to listen for RPC connections"`
	ListenerPort     string   `long:"listenerport" description:"Port that the RPC server listens on (default: 28777)"`
	DisableTLS       bool     `long:"notls" description:"Disable TLS for the RPC server -- NOTE: This is only allowed if the RPC server is bound to localhost"`
	RPCCert          string   `long:"rpccert" description:"File containing the certificate file for clients to connect with the server"`
	RPCKey           string   `long:"rpckey" description:"File containing the certificate key for clients to connect with the server"`
	RPCUser          string   `long:"rpcuser" description:"RPC username for the program operator. This should be changed in production environments"`
	RPCPass          string   `long:"rpcpass" default-mask:"-" description:"RPC password for the program operator. This should be changed in production environments"`
	RPCLimitUser     string   `long:"rpclimituser" description:"RPC username for read-only and claim access"`
	RPCLimitPass     string   `long:"rpclimitpass" default-mask:"-" description:"RPC password for read-only and claim access"`
	RPCMaxClients    int      `long:"rpcmaxclients" description:"Max number of RPC clients"`
	RPCMaxWebsockets int      `long:"rpcmaxwebsockets" description:"Max number of websocket notification connections"`

	LedgerRPCConnect string `long:"ledgerrpcconnect" description:"Hostname/IP and port of the ledger RPC server to connect to"`
	LedgerRPCUser    string `long:"ledgerrpcuser" description:"Username for RPC connections with the ledger"`
	LedgerRPCPass    string `long:"ledgerrpcpass" default-mask:"-" description:"Password for RPC connections with the ledger"`
	LedgerCAFile     string `long:"ledgercafile" description:"File containing root certificates to authenticate a TLS connection with the ledger"`
	DisableLedgerTLS bool   `long:"noledgertls" description:"Disable TLS for the connection with the ledger"`
	EngineAddress    string `long:"engineaddress" description:"Ledger account the program pays rewards out of"`

	BugBountyPoolBps  int   `long:"bugbountypoolbps" description:"Basis points of total supply allocated to the bug bounty pool (default: 3000)"`
	DappPoolBps       int   `long:"dapppoolbps" description:"Basis points of total supply allocated to the dapp pool (default: 4000)"`
	DeveloperPoolBps  int   `long:"developerpoolbps" description:"Basis points of total supply allocated to the developer pool (default: 3000)"`
	TierLowBps        int   `long:"tierlowbps" description:"Basis points of the bug bounty pool shared by a low tier batch (default: 500)"`
	TierMediumBps     int   `long:"tiermediumbps" description:"Basis points of the bug bounty pool shared by a medium tier batch (default: 1500)"`
	TierHighBps       int   `long:"tierhighbps" description:"Basis points of the bug bounty pool shared by a high tier batch (default: 3000)"`
	MonthlyDappReward int64 `long:"monthlydappreward" description:"Flat per-round dapp reward in base token units (default: 2000)"`
	UptimeBonus       int64 `long:"uptimebonus" description:"Bonus on top of dapp rewards for addresses with good uptime (default: 500)"`
	DeploymentReward  int64 `long:"deploymentreward" description:"Flat recurring deployment grant in base token units (default: 5000)"`
	CooldownDays      int   `long:"cooldowndays" description:"Days between recurring deployment claims (default: 30)"`

	ProfilePort string `long:"profileport" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	return parser
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(defaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	sort.Strings(subsystems)
	return subsystems
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace":
		fallthrough
	case "debug":
		fallthrough
	case "info":
		fallthrough
	case "warn":
		fallthrough
	case "error":
		fallthrough
	case "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "The specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsytems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "The specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// removeDuplicateAddresses returns a new slice with all duplicate entries in
// addrs removed.
func removeDuplicateAddresses(addrs []string) []string {
	result := make([]string, 0, len(addrs))
	seen := map[string]struct{}{}
	for _, val := range addrs {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// normalizeNetAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeNetAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// normalizeNetAddresses returns a new slice with all the passed addresses
// normalized with the given default port, and all duplicates removed.
func normalizeNetAddresses(addrs []string, defaultPort string) []string {
	for i, addr := range addrs {
		addrs[i] = normalizeNetAddress(addr, defaultPort)
	}

	return removeDuplicateAddresses(addrs)
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// This function also initializes logging and configures it accordingly.
func loadConfig() (*config, []string, error) {
	cfg := config{
		ConfigFile:        localConfigFile,
		DebugLevel:        defaultLogLevel,
		LogDir:            defaultLogDir,
		RPCMaxClients:     defaultMaxRPCClients,
		RPCMaxWebsockets:  defaultMaxWebsockets,
		RPCKey:            localServerKeyFile,
		RPCCert:           localServerCert,
		DbName:            defaultDatabaseName,
		BugBountyPoolBps:  constdef.DefaultBugBountyPoolBps,
		DappPoolBps:       constdef.DefaultDappPoolBps,
		DeveloperPoolBps:  constdef.DefaultDeveloperPoolBps,
		TierLowBps:        constdef.DefaultTierLowBps,
		TierMediumBps:     constdef.DefaultTierMediumBps,
		TierHighBps:       constdef.DefaultTierHighBps,
		MonthlyDappReward: constdef.DefaultMonthlyDappReward,
		UptimeBonus:       constdef.DefaultUptimeBonus,
		DeploymentReward:  constdef.DefaultDeploymentReward,
		CooldownDays:      30,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	if preCfg.WorkingDir != "" {
		err := os.Chdir(preCfg.WorkingDir)
		if err != nil {
			return nil, nil, err
		}
	}

	fmt.Printf("Use config file: %v\n", preCfg.ConfigFile)

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("cannot find config file %v", preCfg.ConfigFile)
	}

	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(defaultHomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: Failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Expand the log directory.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Show version at startup.
	novaLog.Infof("Version %s", version())

	if cfg.ListenerPort == "" {
		cfg.ListenerPort = defaultListenerPort
	}
	// Add the default listener if none were specified. The default
	// listener is all addresses on the listen port.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", cfg.ListenerPort),
		}
	}

	// Add default port to all listener addresses if needed and remove
	// duplicate addresses.
	cfg.Listeners = normalizeNetAddresses(cfg.Listeners, cfg.ListenerPort)

	// Operator credentials are mandatory; the limited user falls back to a
	// well-known default suitable only for development.
	if cfg.RPCUser == "" || cfg.RPCPass == "" {
		return nil, nil, errors.New("rpcuser and rpcpass should be configured to control the incentive server")
	}
	if cfg.RPCLimitUser == "" || cfg.RPCLimitPass == "" {
		cfg.RPCLimitUser = defaultRPCLimitUser
		cfg.RPCLimitPass = defaultRPCLimitPass
	}
	if cfg.RPCUser == cfg.RPCLimitUser {
		return nil, nil, errors.New("rpcuser and rpclimituser must not be the same")
	}

	// Ledger connection.
	if cfg.LedgerRPCConnect == "" {
		cfg.LedgerRPCConnect = net.JoinHostPort("localhost", defaultLedgerRPCPort)
	}
	cfg.LedgerRPCConnect = normalizeNetAddress(cfg.LedgerRPCConnect, defaultLedgerRPCPort)
	if cfg.LedgerRPCUser == "" || cfg.LedgerRPCPass == "" {
		return nil, nil, errors.New("ledgerrpcuser and ledgerrpcpass should be configured to connect with the ledger")
	}

	if !utils.ValidAddress(cfg.EngineAddress) {
		return nil, nil, errors.New("a valid engineaddress is required, this is the ledger account rewards are paid out of")
	}
	cfg.EngineAddress = utils.NormalizeAddress(cfg.EngineAddress)

	if cfg.DbUsername == "" || cfg.DbPassword == "" {
		return nil, nil, errors.New("database username or password not configured, please add them in configuration file or " +
			"specify them using --dbusername and --dbpassword")
	}

	if cfg.DbAddress == "" {
		novaLog.Infof("Use default database address: %v", defaultDbAddress)
		cfg.DbAddress = defaultDbAddress
	}

	if cfg.DbName == "" {
		return nil, nil, fmt.Errorf("nil dbname")
	}

	// Pool splits must divide the supply without overcommitting it.
	poolBpsSum := cfg.BugBountyPoolBps + cfg.DappPoolBps + cfg.DeveloperPoolBps
	if poolBpsSum <= 0 || poolBpsSum > constdef.BpsDenominator {
		return nil, nil, fmt.Errorf("pool allocations sum to %v basis points, must be within (0, %v]",
			poolBpsSum, constdef.BpsDenominator)
	}
	for _, tierBps := range []int{cfg.TierLowBps, cfg.TierMediumBps, cfg.TierHighBps} {
		if tierBps <= 0 || tierBps > constdef.BpsDenominator {
			return nil, nil, fmt.Errorf("tier share %v basis points out of range (0, %v]",
				tierBps, constdef.BpsDenominator)
		}
	}
	if cfg.MonthlyDappReward < 0 || cfg.UptimeBonus < 0 || cfg.DeploymentReward < 0 {
		return nil, nil, errors.New("reward amounts must not be negative")
	}
	if cfg.CooldownDays <= 0 {
		return nil, nil, errors.New("cooldowndays must be positive")
	}

	// TLS cert and key must exist unless TLS is disabled outright.
	if !cfg.DisableTLS {
		if !fileExists(cfg.RPCCert) || !fileExists(cfg.RPCKey) {
			return nil, nil, fmt.Errorf("rpccert (%v) and rpckey (%v) are required unless --notls is set",
				cfg.RPCCert, cfg.RPCKey)
		}
	} else {
		novaLog.Infof("TLS certificate for the RPC server is disabled")
	}

	// Validate profile port number.
	if cfg.ProfilePort != "" {
		profilePort, err := strconv.Atoi(cfg.ProfilePort)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			str := "%s: The profile port must be between 1024 and 65535"
			err := fmt.Errorf(str, funcName)
			return nil, nil, err
		}
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		novaLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
