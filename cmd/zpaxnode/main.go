// Command zpaxnode runs a single Multi-Paxos replica over either an
// in-memory broker (single process, many goroutines — for local
// trials) or a real NATS core pub/sub bus (multi-process cluster).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnikhil-git/zpax/pkg/config"
	"github.com/mnikhil-git/zpax/pkg/logger"
	"github.com/mnikhil-git/zpax/pkg/node"
	"github.com/mnikhil-git/zpax/pkg/store/adapters/sqlite"
	"github.com/mnikhil-git/zpax/pkg/transport"
	memorytransport "github.com/mnikhil-git/zpax/pkg/transport/adapters/memory"
	natstransport "github.com/mnikhil-git/zpax/pkg/transport/adapters/nats"
)

// appConfig is this process's configuration, loaded from .env/the
// environment via pkg/config.
type appConfig struct {
	Logger logger.Config

	NodeUID        string `env:"NODE_UID" env-default:"node-a" validate:"required"`
	QuorumSize     int    `env:"QUORUM_SIZE" env-default:"2" validate:"min=1"`
	SequenceNumber uint64 `env:"SEQUENCE_NUMBER" env-default:"0"`

	Transport string `env:"TRANSPORT" env-default:"memory" validate:"oneof=memory nats"`
	NATS      natstransport.Config

	StorePath string `env:"STORE_SQLITE_PATH" env-default:"zpax.db"`
}

// loggingCallbacks logs every Paxos lifecycle event a human operator
// cares about; everything it does not override falls back to
// node.NoopCallbacks.
type loggingCallbacks struct {
	node.NoopCallbacks
	log *slog.Logger
}

func (c *loggingCallbacks) OnLeadershipAcquired() {
	c.log.Info("acquired leadership")
}

func (c *loggingCallbacks) OnLeadershipLost() {
	c.log.Info("lost leadership")
}

func (c *loggingCallbacks) OnLeadershipChanged(prevLeaderUID, newLeaderUID string) {
	c.log.Info("leadership changed", "prev_leader", prevLeaderUID, "new_leader", newLeaderUID)
}

func (c *loggingCallbacks) OnProposalResolution(instanceNumber uint64, value any) {
	c.log.Info("instance resolved", "instance", instanceNumber, "value", value)
}

func (c *loggingCallbacks) OnBehindInSequence() {
	c.log.Warn("behind in sequence")
}

func main() {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Logger)

	var broker transport.Broker
	switch cfg.Transport {
	case "nats":
		b, err := natstransport.New(cfg.NATS)
		if err != nil {
			log.Error("failed to connect to nats", "err", err)
			os.Exit(1)
		}
		broker = b
	default:
		broker = memorytransport.New(memorytransport.Config{BufferSize: 256})
	}
	defer broker.Close()

	st, err := sqlite.New(sqlite.Config{Path: cfg.StorePath})
	if err != nil {
		log.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	highest, err := st.HighestProposalNumber(context.Background())
	if err != nil {
		log.Error("failed to read highest proposal number", "err", err)
		os.Exit(1)
	}
	sequenceNumber := cfg.SequenceNumber
	if highest+1 > sequenceNumber {
		sequenceNumber = highest + 1
	}

	callbacks := &loggingCallbacks{log: log}

	n, err := node.New(node.Config{
		NodeUID:        cfg.NodeUID,
		QuorumSize:     cfg.QuorumSize,
		SequenceNumber: sequenceNumber,
		Broker:         broker,
		Callbacks:      callbacks,
		Store:          st,
		Logger:         log,
	})
	if err != nil {
		log.Error("failed to construct node", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		log.Error("failed to start node", "err", err)
		os.Exit(1)
	}
	defer n.Shutdown()

	log.Info("zpax node started", "node_uid", cfg.NodeUID, "sequence_number", sequenceNumber)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("zpax node shutting down")
	time.Sleep(50 * time.Millisecond) // let in-flight publishes drain
}
