package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ozzus/relayping/internal/checks"
	"ozzus/relayping/internal/directory"
	"ozzus/relayping/internal/domain"
	"ozzus/relayping/internal/repository"
	"ozzus/relayping/internal/repository/kafka"
	"ozzus/relayping/internal/sweep"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newMeasureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "measure <host>...",
		Short: "Measure latency to one or more hosts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			measurer := newMeasurer(a.cfg, newEchoRunner(a.cfg, a.log), a.log)

			// A single host in table mode prints the bare display string.
			if len(args) == 1 && a.output == formatTable {
				display, err := measurer.MeasureLatency(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), display)
				return nil
			}

			servers := make([]directory.Server, len(args))
			for i, host := range args {
				servers[i] = directory.Server{Name: host, IP: host}
			}

			results := sweep.Run(ctx, measurer, servers, sweep.Options{Concurrency: a.cfg.Latency.Concurrency})
			if err := writeRows(cmd.OutOrStdout(), a.output, toRows(results)); err != nil {
				return err
			}
			if countMeasured(results) == 0 {
				return errNothingMeasured
			}
			return nil
		},
	}
}

func newServersCmd(a *app) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List relay servers from the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := newDirectory(a.cfg, a.log)
			if err != nil {
				return err
			}

			servers, err := dir.Servers(cmd.Context())
			if err != nil {
				return err
			}

			return writeServers(cmd.OutOrStdout(), a.output, checks.FilterServers(servers, filter))
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "keep servers in this region or country code")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	var (
		filter      string
		concurrency int
		sortResults bool
		publish     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure latency to every relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			dir, err := newDirectory(a.cfg, a.log)
			if err != nil {
				return err
			}
			servers, err := dir.Servers(ctx)
			if err != nil {
				return err
			}
			servers = checks.FilterServers(servers, filter)

			if concurrency <= 0 {
				concurrency = a.cfg.Latency.Concurrency
			}

			measurer := newMeasurer(a.cfg, newEchoRunner(a.cfg, a.log), a.log)
			results := sweep.Run(ctx, measurer, servers, sweep.Options{Concurrency: concurrency})

			if sortResults {
				sortByLatency(results)
			}

			if publish {
				if err := a.publishSweep(ctx, results); err != nil {
					return err
				}
			}

			if err := writeRows(cmd.OutOrStdout(), a.output, toRows(results)); err != nil {
				return err
			}
			if len(results) > 0 && countMeasured(results) == 0 {
				return errNothingMeasured
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&filter, "filter", "f", "", "keep servers in this region or country code")
	flags.IntVar(&concurrency, "concurrency", 0, "parallel measurements (default from config)")
	flags.BoolVar(&sortResults, "sort", false, "order by latency, unmeasured servers last")
	flags.BoolVar(&publish, "publish", false, "publish each measurement to the Kafka results topic")
	return cmd
}

// publishSweep sends every measurement as a CheckResult under one fresh
// task id.
func (a *app) publishSweep(ctx context.Context, results []sweep.Measurement) error {
	producer := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topics.Results)
	defer producer.Close()

	logs := kafka.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topics.Logs)
	defer logs.Close()

	repo := repository.NewKafkaResultRepository(producer, logs, a.log)
	taskID := uuid.NewString()
	now := time.Now()

	for _, m := range results {
		res := domain.CheckResult{
			TaskID:    taskID,
			AgentID:   a.cfg.Agent.Name,
			Type:      domain.TaskTypeSweep,
			Target:    m.Server.IP,
			Status:    domain.StatusSuccess,
			Display:   m.Display,
			Timestamp: now,
			Payload:   map[string]interface{}{"server_id": m.Server.ID, "name": m.Server.Name},
		}
		if m.Result != nil {
			res.Method = string(m.Result.Method)
			res.Estimated = !m.Result.Measured()
			if m.Result.Measured() {
				ms := m.Result.LatencyMs
				res.LatencyMs = &ms
			}
		} else {
			res.Status = domain.StatusFailed
			res.Error = m.Display
			res.ErrorKind = string(m.ErrorKind)
		}

		if err := repo.SendResult(ctx, res); err != nil {
			return err
		}
	}

	a.log.Info("sweep published", "task_id", taskID, "results", len(results))
	return nil
}

func countMeasured(results []sweep.Measurement) int {
	n := 0
	for _, m := range results {
		if m.Result != nil {
			n++
		}
	}
	return n
}

// sortByLatency orders measured results ascending, then estimated and raw
// results, then failures. Ties keep directory order.
func sortByLatency(results []sweep.Measurement) {
	rank := func(m sweep.Measurement) int {
		switch {
		case m.Result == nil:
			return 2
		case !m.Result.Measured():
			return 1
		}
		return 0
	}

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank(results[i]), rank(results[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			return results[i].Result.LatencyMs < results[j].Result.LatencyMs
		}
		return false
	})
}
