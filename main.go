package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/novanet-dev/nova-incentive-server/dal"
	"github.com/novanet-dev/nova-incentive-server/ledgerclient"
	"github.com/novanet-dev/nova-incentive-server/service"
)

var (
	cfg *config
)

// readCAFile reads the certificate file used to authenticate the TLS
// connection with the ledger.
func readCAFile(filepath string) []byte {
	certs, err := os.ReadFile(filepath)
	if err != nil {
		novaLog.Warnf("Cannot open CA file: %v", err)
		// If there's an error reading the CA file, continue
		// with nil certs and without the client connection.
		certs = nil
	}

	return certs
}

// startLedgerRPC opens a RPC client connection to the ledger node. This
// function uses the RPC options from the global config and there is no
// recovery in case the node is not available or if there is an
// authentication error. Instead, all requests to the client will simply
// error.
func startLedgerRPC() (*ledgerclient.RPCClient, error) {
	novaLog.Infof("Attempting RPC client connection to ledger (%v)", cfg.LedgerRPCConnect)

	var certs []byte
	if !cfg.DisableLedgerTLS && cfg.LedgerCAFile != "" {
		certs = readCAFile(cfg.LedgerCAFile)
	}

	return ledgerclient.NewRPCClient(&ledgerclient.ConnConfig{
		Host:          cfg.LedgerRPCConnect,
		User:          cfg.LedgerRPCUser,
		Pass:          cfg.LedgerRPCPass,
		DisableTLS:    cfg.DisableLedgerTLS,
		Certificates:  certs,
		EngineAddress: cfg.EngineAddress,
	})
}

func startProfileServer() {
	listenAddr := net.JoinHostPort("localhost", cfg.ProfilePort)
	novaLog.Infof("Profile server listening on %s", listenAddr)
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	novaLog.Errorf("%v", http.ListenAndServe(listenAddr, mux))
}

func incentiveMain() error {
	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	tcfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = tcfg

	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	defer novaLog.Info("Shutdown complete")

	// Enable http profiling server if requested.
	if cfg.ProfilePort != "" {
		go func() {
			startProfileServer()
		}()
	}

	// Initiate database.
	err = dal.InitDB(&dal.DBConfig{
		Username:     cfg.DbUsername,
		Password:     cfg.DbPassword,
		Address:      cfg.DbAddress,
		DatabaseName: cfg.DbName,
	}, !cfg.DisableAutoCreateDB)
	if err != nil {
		return err
	}

	// Check if admin exists.
	ctx := context.Background()
	tx := dal.GetDB(ctx)
	adminService := service.GetAdminService()
	exist, err := adminService.AdminExists(ctx, tx)
	if err != nil {
		return err
	}
	if !exist {
		fmt.Print("It seems that it is the first time you start the server, please specify the password for admin: ")
		var pwd string
		_, err := fmt.Scanln(&pwd)
		if err != nil {
			return err
		}
		err = adminService.RegisterAdmin(ctx, tx, pwd)
		if err != nil {
			return err
		}
		novaLog.Infof("Successfully generated account for admin, please use this password for RPC authentication")
	}

	// Connect to the ledger and pin the fixed token supply. On a restart
	// the recorded supply must match what the ledger reports.
	ledger, err := startLedgerRPC()
	if err != nil {
		novaLog.Errorf("Unable to create RPC client for the ledger: %v", err)
		return err
	}

	totalSupply, err := ledger.TotalSupply(ctx)
	if err != nil {
		novaLog.Errorf("Unable to read total supply from the ledger: %v", err)
		return err
	}
	novaLog.Infof("Ledger reports a total supply of %v", totalSupply)

	metaInfoService := service.GetMetaInfoService()
	metaInfo, err := metaInfoService.Init(ctx, tx, totalSupply)
	if err != nil {
		return err
	}

	program := newProgramConfig(cfg)
	if err := service.GetPoolService().InitPools(ctx, tx, program, totalSupply); err != nil {
		return err
	}

	novaLog.Infof("Meta Info: Total supply: %v, Live: %v, Distributed: %v, Paused: %v, Next round: %v",
		metaInfo.TotalSupply, metaInfo.Launched, metaInfo.Distributed, metaInfo.Paused, metaInfo.NextRoundID)

	// Create and start the server, including the incentive RPC server and
	// the reward manager.
	svr, err := newServer(tx, ledger, program)
	if err != nil {
		return err
	}

	svr.Start()

	addInterruptHandler(func() {
		svr.Stop()
	})

	// Wait until the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems such as the RPC
	// server.
	<-interruptHandlersDone
	return nil
}

func main() {
	// Use all processor cores.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Bulk distribution and claim bursts can cause bursty allocations.
	// This limits the garbage collector from excessively overallocating
	// during bursts.
	debug.SetGCPercent(10)

	if err := incentiveMain(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
