package main

import (
	"rfq/internal/app"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire every open RFQ past its deadline once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp()
			if err != nil {
				return err
			}
			defer a.Repository().Close()

			count, err := a.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("count", count).Info("Sweep finished")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var (
		users    int
		products int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a development database with fake users and products",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.NewApp()
			if err != nil {
				return err
			}
			defer a.Repository().Close()

			seeded, err := a.Seed(cmd.Context(), users, products)
			if err != nil {
				return err
			}
			for _, u := range seeded.Users {
				log.WithFields(log.Fields{"id": u.Id, "username": u.Username, "role": u.Role}).Info("Seeded user")
			}
			for _, p := range seeded.Products {
				log.WithFields(log.Fields{"id": p.Id, "name": p.Name}).Info("Seeded product")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&users, "users", 2, "users per role")
	cmd.Flags().IntVar(&products, "products", 10, "catalog products")
	return cmd
}
