package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskboard/internal/repository"
	"taskboard/internal/service"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print the daily digest of one user",
	RunE:  runDigest,
}

var digestEmail string

func init() {
	digestCmd.Flags().StringVar(&digestEmail, "email", "", "email of the user")
	_ = digestCmd.MarkFlagRequired("email")
}

func runDigest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.backend.Users.FindByEmail(cmd.Context(), strings.TrimSpace(digestEmail))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no user with email %q", digestEmail)
	}
	if err != nil {
		return err
	}

	text, err := service.NewDigestService(a.backend).ForUser(cmd.Context(), user, time.Now().In(a.cfg.Location()))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
