package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"peritagem/internal/emulator"
	"peritagem/internal/repository"
	"peritagem/internal/service"
)

func newSeedCmd() *cobra.Command {
	var perStage int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert synthetic peritagens for every stage",
		Long: "Signs in against the REST backend (emulated when offline mode is on) " +
			"and inserts synthetic records for each workflow stage.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := setup(ctx)
			if err != nil {
				return err
			}
			defer b.close()

			if perStage <= 0 {
				perStage = b.cfg.SeedPerStage
			}
			audit := service.NewAuditService(repository.NewAuditRepository(b.db), b.log)

			client := b.rest
			switch {
			case b.offline:
				client = b.emulated
			case client == nil:
				// postgres backend without a REST project: seed the database directly
				seeder := service.NewSeedService(b.peritagens, repository.NewProfileRepository(b.db), audit, perStage, nil, b.log)
				return printSeed(cmd, seeder, "")
			}

			email, password := b.cfg.BackendEmail, b.cfg.BackendSecret
			if b.offline {
				email = emulator.MockUserEmail
			}
			if _, err := client.SignIn(ctx, email, password); err != nil {
				return err
			}
			b.log.Info("signed in for seeding", zap.String("user_id", client.UserID()))

			seeder := service.NewSeedService(client, client, audit, perStage, nil, b.log)
			return printSeed(cmd, seeder, client.UserID())
		},
	}
	cmd.Flags().IntVar(&perStage, "per-stage", 0, "records per stage (default SEED_PER_STAGE)")
	return cmd
}

func printSeed(cmd *cobra.Command, seeder service.SeedService, authorID string) error {
	res, err := seeder.Seed(cmd.Context(), authorID)
	if err != nil {
		return err
	}
	for _, st := range res.Stages {
		line := fmt.Sprintf("stage %d %-28s %d", st.Stage, st.Status, st.Created)
		if st.Error != "" {
			line += "  error: " + st.Error
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "total: %d (author %s)\n", res.Total, res.AuthorID)
	return nil
}
