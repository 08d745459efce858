package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attendance reports",
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Present, late and absent counts for one day",
	Args:  cobra.NoArgs,
	RunE:  runReportSummary,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List attendance records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runReportList,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportSummaryCmd)
	reportCmd.AddCommand(reportListCmd)

	reportSummaryCmd.Flags().String("date", "", "Day as YYYY-MM-DD (default today)")
	reportSummaryCmd.Flags().Bool("json", false, "Output as JSON")

	reportListCmd.Flags().String("from", "", "First day as YYYY-MM-DD")
	reportListCmd.Flags().String("to", "", "Last day as YYYY-MM-DD")
	reportListCmd.Flags().String("identity", "", "Only records of this identity ID")
	reportListCmd.Flags().String("status", "", "Only records with this status (present, late, absent)")
	reportListCmd.Flags().Int("limit", constants.DefaultHandlerPageSize, "Maximum number of records")
	reportListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runReportSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.attendance.Summary(ctx, mustGetString(cmd, "date"))
	if err != nil {
		return fmt.Errorf("building summary: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(summary)
	}
	fmt.Printf("Attendance on %s\n", summary.Date)
	fmt.Printf("  Total:   %d\n", summary.Total)
	fmt.Printf("  Present: %d\n", summary.Present)
	fmt.Printf("  Late:    %d\n", summary.Late)
	fmt.Printf("  Absent:  %d\n", summary.Absent)
	return nil
}

func runReportList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.attendance.List(ctx, database.AttendanceFilter{
		From:       mustGetString(cmd, "from"),
		To:         mustGetString(cmd, "to"),
		IdentityID: mustGetString(cmd, "identity"),
		Status:     database.AttendanceStatus(mustGetString(cmd, "status")),
		Limit:      min(max(mustGetInt(cmd, "limit"), 1), constants.MaxHandlerPageSize),
	})
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("No attendance records found.")
		return nil
	}

	policy := a.attendance.Policy()
	fmt.Printf("%-10s  %-30s  %-8s  %-8s  %-7s  %s\n", "DATE", "NAME", "IN", "OUT", "STATUS", "LOCATION")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range records {
		out := "-"
		if r.TimeOut != nil {
			out = policy.Clock(*r.TimeOut)
		}
		fmt.Printf("%-10s  %-30s  %-8s  %-8s  %-7s  %s\n",
			r.Date, r.IdentityName, policy.Clock(r.TimeIn), out, r.Status, r.Location)
	}
	return nil
}
