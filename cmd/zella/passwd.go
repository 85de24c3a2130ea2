package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newthinker/zella/internal/auth"
)

var (
	passwdValue string
	passwdCost  int
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Print a bcrypt hash for the admin password",
	Long:  "Reads the password from --password or the first line of stdin and prints a hash for auth.admin.password_hash.",
	RunE: func(cmd *cobra.Command, args []string) error {
		pw := passwdValue
		if pw == "" {
			line, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			pw = line
		}
		hash, err := hashAdminPassword(pw, passwdCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	passwdCmd.Flags().StringVar(&passwdValue, "password", "", "password to hash (default: read stdin)")
	passwdCmd.Flags().IntVar(&passwdCost, "cost", auth.DefaultCost, "bcrypt cost")

	rootCmd.AddCommand(passwdCmd)
}

func hashAdminPassword(pw string, cost int) (string, error) {
	if len(pw) < auth.MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}
	return auth.HashPassword(pw, cost)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
