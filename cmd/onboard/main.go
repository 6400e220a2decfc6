// onboard runs the marketplace sign-in/registration flow in a terminal.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	c := &cli{}

	root := &cobra.Command{
		Use:               "onboard",
		Short:             "Sign in or register on the marketplace with a mobile OTP",
		PersistentPreRunE: c.setupConfig,
		RunE:              c.run,
		SilenceUsage:      true,
	}
	root.PersistentFlags().String("env-file", ".env", "Path to an env file; missing files are ignored")
	root.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	session := &cobra.Command{
		Use:   "session",
		Short: "Print the session stored by the last successful onboarding",
		RunE:  c.showSession,
	}
	session.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session (sign out on this device)",
		RunE:  c.clearSession,
	})
	root.AddCommand(session)
	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check that storage and the approval policy are usable",
		RunE:  c.check,
	})

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
