package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gamecoach-ai/gamecoach/internal/doctor"
)

// NewDoctorCmd builds the doctor command, the client preflight check.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check microphone and library prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(os.Stderr, "gamecoach preflight checks:")
			results := doctor.RunChecks("client")
			if !doctor.PrintResults(results) {
				return fmt.Errorf("preflight checks failed")
			}
			return nil
		},
	}
}
