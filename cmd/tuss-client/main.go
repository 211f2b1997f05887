package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"tuss-cogs/internal/client"
	"tuss-cogs/internal/logging"
)

func main() {
	serverURL := flag.String("server", client.DefaultServerURL, "game server URL")
	register := flag.Bool("register", false, "create the account before logging in")
	logPath := flag.String("log", "tuss-client.log", "log file")
	flag.Parse()

	log := logrus.New()
	closer := logging.ToFile(log, *logPath)
	defer closer.Close()

	fmt.Println("Starting TUSS client...")
	gameClient := client.NewClient(*serverURL, log)

	username, password, err := client.PromptCredentials(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *register {
		if err := gameClient.Register(username, password); err != nil {
			fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
			os.Exit(1)
		}
	}
	player, err := gameClient.Login(username, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Welcome, %s (level %d, %d coins, %d gems, %d deposits)!\n",
		player.Username, player.Progress.CurrentLevel, player.Progress.Coins, player.Progress.Gems, player.Progress.Deposits)

	created, err := gameClient.CreateSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not start a game: %v\n", err)
		os.Exit(1)
	}
	if err := gameClient.Connect(created.SessionID); err != nil {
		fmt.Fprintf(os.Stderr, "Could not join the game: %v\n", err)
		os.Exit(1)
	}
	defer gameClient.Close()

	ui := client.NewTermboxUI(gameClient)
	if err := ui.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Terminal setup failed: %v\n", err)
		os.Exit(1)
	}
	go func() {
		if err := gameClient.Listen(ui.Refresh); err != nil {
			log.WithError(err).Warn("game connection lost")
		}
		gameClient.View().Note("Disconnected. Esc to leave.")
		ui.Refresh()
	}()
	runErr := ui.Run()
	ui.Close()
	if runErr != nil {
		log.WithError(runErr).Error("terminal error")
	}

	if snap, ok := gameClient.View().Snapshot(); ok && snap.Outcome != nil {
		o := snap.Outcome
		fmt.Printf("%s: +%d coins, +%d gems, +%d deposits\n", o.Kind, o.Payout.Coins, o.Payout.Gems, o.Payout.Deposits)
	}
}
