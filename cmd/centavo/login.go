package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/centavo-app/centavo/internal/storage"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the remote store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			reader := bufio.NewReader(os.Stdin)
			if email == "" {
				cmd.Print("Email: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}

			cmd.Print("Password: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")

			if err := svc.session.SignIn(ctx, email, password); err != nil {
				return err
			}

			owner, err := svc.session.OwnerID(ctx)
			if err != nil {
				return err
			}
			if err := svc.kv.Put(ctx, storage.KeySessionToken, []byte(svc.session.AccessToken())); err != nil {
				return err
			}
			if err := svc.kv.Put(ctx, storage.KeySessionUser, []byte(owner)); err != nil {
				return err
			}

			cmd.Printf("Signed in as %s\n", svc.session.Email())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, err := initServices(ctx)
			if err != nil {
				return err
			}
			defer svc.close()

			svc.forgetSession(ctx)
			cmd.Println("Signed out")
			return nil
		},
	}
}
