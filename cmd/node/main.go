package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"branchstore/benchmark"
	"branchstore/configs"
	"branchstore/network/replica"
)

func main() {
	id := flag.Int("id", configs.SelfID, "branch id of this node in the bootstrap table")
	store := flag.String("store", "memory", "local store backend: memory, sql, or mongo")
	conf := flag.String("config", configs.ConfigFileLocation, "branch table config file")
	useWAL := flag.Bool("wal", false, "append applied mutations to a write-ahead log")
	debug := flag.Bool("debug", false, "print protocol debug output")
	bench := flag.Int("bench", 0, "run the loopback benchmark over this many in-process nodes and exit")
	flag.Parse()

	configs.SetSelf(*id)
	configs.SetStore(*store)
	configs.ConfigFileLocation = *conf
	configs.UseWAL = *useWAL
	configs.ShowDebugInfo = *debug
	configs.ShowWarnings = *debug

	if *bench > 0 {
		benchmark.RunLocal(*bench, 6100)
		return
	}

	stmt, err := replica.NewContext(configs.SelfID, replica.LoadBranches())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: cannot start branch node: %v\n", err)
		os.Exit(1)
	}
	go stmt.Run()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTSTP)
	go func() {
		<-sigs
		fmt.Println()
		os.Exit(1)
	}()

	mainMenu(stmt)
	stmt.Close()
	fmt.Println("\n>> Branch node stopped.")
}
