// dkpadmin is the operator CLI for the scheduled and one-off ledger
// mutations: expansion decays and bonuses, balance caps, main changes, roster
// reconciliation, and audit snapshot export.
package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/guildtools/dkpledger/registry"
	"github.com/guildtools/dkpledger/service"
	"github.com/guildtools/dkpledger/store/sqlite"
)

var dataDir string

func main() {
	root := &cobra.Command{
		Use:           "dkpadmin",
		Short:         "Administer the guild DKP ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "database directory")

	root.AddCommand(
		balanceCommand(),
		decayCommand(),
		bonusCommand(),
		capCommand(),
		mainChangeCommand(),
		rosterCommand(),
		exportCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openService() (*service.Service, error) {
	st, err := sqlite.New(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return service.New(st, logger, service.Config{}), nil
}

// memberNames returns the decay/bonus targets: the named member, or every
// registered member when name is empty.
func memberNames(ctx context.Context, svc *service.Service, name string) ([]string, error) {
	if name != "" {
		return []string{name}, nil
	}
	return svc.MemberNames(ctx)
}

func balanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <member>",
		Short: "Show a member's main and alt balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			main, alt, err := svc.MemberBalances(ctx, args[0])
			if err != nil {
				return err
			}
			att, err := svc.MemberAttendance(ctx, args[0], 30)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d DKP (alt %d), %.2f%% 30-day attendance\n", args[0], main, alt, att)
			return nil
		},
	}
}

func decayCommand() *cobra.Command {
	var member, notes string
	var factor float64
	cmd := &cobra.Command{
		Use:   "decay",
		Short: "Remove a fraction of main balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			names, err := memberNames(ctx, svc, member)
			if err != nil {
				return err
			}
			for _, name := range names {
				if err := svc.Decay(ctx, name, factor, notes); err != nil {
					return err
				}
			}
			fmt.Printf("decayed %d members by %.0f%%\n", len(names), factor*100)
			return nil
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "single member (default: all)")
	cmd.Flags().Float64Var(&factor, "factor", 0.5, "fraction of balance to remove")
	cmd.Flags().StringVar(&notes, "notes", "", "audit notes")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func bonusCommand() *cobra.Command {
	var member, notes string
	var amount int
	var attendanceDivisor float64
	cmd := &cobra.Command{
		Use:   "bonus",
		Short: "Credit a flat or attendance-scaled bonus",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			names, err := memberNames(ctx, svc, member)
			if err != nil {
				return err
			}
			granted := 0
			for _, name := range names {
				value := amount
				if attendanceDivisor > 0 {
					att, err := svc.MemberAttendance(ctx, name, 30)
					if err != nil {
						return err
					}
					value = int(math.Floor(att / attendanceDivisor))
				}
				if value <= 0 {
					continue
				}
				if err := svc.GiveBonus(ctx, name, value, notes); err != nil {
					return err
				}
				granted++
			}
			fmt.Printf("granted bonus to %d members\n", granted)
			return nil
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "single member (default: all)")
	cmd.Flags().IntVar(&amount, "amount", 0, "flat bonus amount")
	cmd.Flags().Float64Var(&attendanceDivisor, "attendance-divisor", 0,
		"grant floor(30-day attendance / divisor) instead of a flat amount")
	cmd.Flags().StringVar(&notes, "notes", "", "audit notes")
	_ = cmd.MarkFlagRequired("notes")
	return cmd
}

func capCommand() *cobra.Command {
	var member, notes string
	var cap int
	var alt bool
	cmd := &cobra.Command{
		Use:   "cap",
		Short: "Clamp balances to a maximum",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			names, err := memberNames(ctx, svc, member)
			if err != nil {
				return err
			}
			capped := 0
			for _, name := range names {
				var applied bool
				if alt {
					applied, err = svc.CapAltBalance(ctx, name, cap)
				} else {
					applied, err = svc.CapMainBalance(ctx, name, cap, notes)
				}
				if err != nil {
					return err
				}
				if applied {
					capped++
				}
			}
			fmt.Printf("capped %d members at %d\n", capped, cap)
			return nil
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "single member (default: all)")
	cmd.Flags().IntVar(&cap, "cap", 0, "maximum balance")
	cmd.Flags().BoolVar(&alt, "alt", false, "cap the alt pool instead of main")
	cmd.Flags().StringVar(&notes, "notes", "", "audit notes")
	_ = cmd.MarkFlagRequired("cap")
	return cmd
}

func mainChangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "main-change <old-main> <new-main>",
		Short: "Transfer a player's points and alts to a new main",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			if err := svc.MainChange(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("main change applied: %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}

func rosterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roster <guild-dump-file>",
		Short: "Reconcile the registry against a tab-separated guild dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := parseGuildDump(args[0])
			if err != nil {
				return err
			}
			svc, err := openService()
			if err != nil {
				return err
			}
			if err := svc.UpdateRoster(cmd.Context(), entries); err != nil {
				return err
			}
			fmt.Printf("roster updated from %d entries\n", len(entries))
			return nil
		},
	}
}

func exportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a CBOR audit snapshot of the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			data, err := svc.ExportSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			fmt.Printf("wrote %d bytes to %s\n", len(data), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "dkp-snapshot.cbor", "output file")
	return cmd
}

// parseGuildDump reads the in-game guild roster export: tab-separated with
// name, level, class, rank, and the officer note in the eighth column.
func parseGuildDump(path string) ([]registry.RosterEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open guild dump: %w", err)
	}
	defer f.Close()

	var entries []registry.RosterEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			continue
		}
		entry := registry.RosterEntry{
			Name:  cols[0],
			Class: cols[2],
			Rank:  cols[3],
		}
		if len(cols) > 7 {
			entry.Note = cols[7]
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read guild dump: %w", err)
	}
	return entries, nil
}
