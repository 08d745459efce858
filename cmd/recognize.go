package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Identify the face in an image",
	Long: `Identify the most prominent face in an image file.
With --check-in, a recognized person also gets today's attendance recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().Bool("check-in", false, "Record attendance for the recognized person")
	recognizeCmd.Flags().String("location", "", "Check-in location (defaults to ATTENDANCE_LOCATION)")
	recognizeCmd.Flags().String("notes", "", "Check-in notes")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

// RecognizeOutput is the JSON output of the recognize command.
type RecognizeOutput struct {
	Matched    bool    `json:"matched"`
	IdentityID string  `json:"identity_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Distance   float64 `json:"distance"`
	Reason     string  `json:"reason"`
	Threshold  float64 `json:"threshold"`
	Status     string  `json:"status,omitempty"`
	TimeIn     string  `json:"time_in,omitempty"`
	Created    *bool   `json:"created,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := RecognizeOutput{Threshold: a.recognition.Threshold()}

	if mustGetBool(cmd, "check-in") {
		res, err := a.recognition.CheckInImage(ctx, data, mustGetString(cmd, "location"), mustGetString(cmd, "notes"))
		if rejected, ok := recognition.RejectedMatch(err); ok {
			out.Distance = rejected.Distance
			out.Reason = string(rejected.Reason)
		} else if err != nil {
			return fmt.Errorf("check-in failed: %w", err)
		} else {
			out.Matched = true
			out.IdentityID = res.Match.IdentityID
			out.Name = res.Match.Name
			out.Distance = res.Match.Distance
			out.Reason = string(res.Match.Reason)
			out.Status = string(res.Record.Status)
			out.TimeIn = a.attendance.Policy().Clock(res.Record.TimeIn)
			out.Created = &res.Created
		}
	} else {
		match, err := a.recognition.IdentifyImage(ctx, data)
		if err != nil {
			return fmt.Errorf("recognition failed: %w", err)
		}
		out.Matched = match.Matched
		out.IdentityID = match.IdentityID
		out.Name = match.Name
		out.Distance = match.Distance
		out.Reason = string(match.Reason)
	}

	if jsonOutput {
		return outputJSON(out)
	}

	if !out.Matched {
		fmt.Printf("No match (%s", out.Reason)
		if out.Reason != "no_references" {
			fmt.Printf(", closest distance %.4f, threshold %.2f", out.Distance, out.Threshold)
		}
		fmt.Println(")")
		return nil
	}

	fmt.Printf("Recognized %s (%s) at distance %.4f\n", out.Name, out.IdentityID, out.Distance)
	if out.Created != nil {
		if *out.Created {
			fmt.Printf("Checked in at %s as %s\n", out.TimeIn, out.Status)
		} else {
			fmt.Printf("Already checked in today at %s (%s)\n", out.TimeIn, out.Status)
		}
	}
	return nil
}

