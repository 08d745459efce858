package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Bulk enroll face images",
	Long: `Enroll every image under <dir>, one subdirectory per person:

  <dir>/Jane Doe/front.jpg
  <dir>/Jane Doe/glasses.png
  <dir>/John Smith/1.jpg

The directory name is the person's name. Missing identities are created;
existing ones get the images appended as additional samples.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().Int("concurrency", constants.WorkerPoolSize, "Number of parallel workers")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

// enrollPerson is one person directory and its image files.
type enrollPerson struct {
	Name  string
	Files []string
}

// EnrollResult summarizes a bulk enrollment run.
type EnrollResult struct {
	People     int               `json:"people"`
	Created    int               `json:"identities_created"`
	Samples    int               `json:"samples"`
	Collisions int               `json:"collisions"`
	Errors     map[string]string `json:"errors,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

var enrollExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// collectEnrollFiles lists person directories of root with their image files, sorted by name.
// Files directly in root and directories without images are ignored.
func collectEnrollFiles(root string) ([]enrollPerson, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}

	var people []enrollPerson
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}

		person := enrollPerson{Name: strings.TrimSpace(e.Name())}
		for _, f := range files {
			ext := strings.ToLower(filepath.Ext(f.Name()))
			if f.Type().IsRegular() && slices.Contains(enrollExtensions, ext) {
				person.Files = append(person.Files, filepath.Join(dir, f.Name()))
			}
		}
		if person.Name != "" && len(person.Files) > 0 {
			slices.Sort(person.Files)
			people = append(people, person)
		}
	}
	slices.SortFunc(people, func(a, b enrollPerson) int { return strings.Compare(a.Name, b.Name) })
	return people, nil
}

// resolveIdentity finds the identity named name or creates it. Ambiguous names are an error.
func resolveIdentity(ctx context.Context, svc *enrollment.Service, name string) (*database.Identity, bool, error) {
	found, err := svc.FindIdentityByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	switch len(found) {
	case 0:
		identity := &database.Identity{Name: name}
		if err := svc.CreateIdentity(ctx, identity); err != nil {
			return nil, false, err
		}
		return identity, true, nil
	case 1:
		return &found[0], false, nil
	default:
		return nil, false, fmt.Errorf("%d identities are named %q, enroll through the API instead", len(found), name)
	}
}

type enrollJob struct {
	identityID string
	path       string
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	startTime := time.Now()
	jsonOutput := mustGetBool(cmd, "json")
	concurrency := max(1, mustGetInt(cmd, "concurrency"))

	people, err := collectEnrollFiles(args[0])
	if err != nil {
		return err
	}
	if len(people) == 0 {
		return errors.New("no person directories with images found")
	}

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if !a.extractor.Ready() {
		return fmt.Errorf("embedding server at %s is not available", a.cfg.Embedding.URL)
	}

	result := EnrollResult{People: len(people), Errors: make(map[string]string)}
	var jobs []enrollJob
	for _, p := range people {
		identity, created, err := resolveIdentity(ctx, a.enrollment, p.Name)
		if err != nil {
			result.Errors[p.Name] = err.Error()
			continue
		}
		if created {
			result.Created++
		}
		for _, f := range p.Files {
			jobs = append(jobs, enrollJob{identityID: identity.ID, path: f})
		}
	}

	if !jsonOutput {
		fmt.Printf("Enrolling %d images of %d people (%d new)\n\n", len(jobs), len(people), result.Created)
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var samples, collisions int64
	var errMu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, job := range jobs {
		wg.Add(1)
		go func(job enrollJob) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := enrollFile(ctx, a.enrollment, job)
			if err != nil {
				errMu.Lock()
				result.Errors[job.path] = err.Error()
				errMu.Unlock()
			} else {
				atomic.AddInt64(&samples, 1)
				atomic.AddInt64(&collisions, int64(len(res.Collisions)))
			}

			if bar != nil {
				bar.Add(1)
			}
		}(job)
	}
	wg.Wait()

	result.Samples = int(samples)
	result.Collisions = int(collisions)
	result.DurationMs = time.Since(startTime).Milliseconds()

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Println("\n\nEnrollment complete!")
	fmt.Printf("  People:             %d\n", result.People)
	fmt.Printf("  Identities created: %d\n", result.Created)
	fmt.Printf("  Samples stored:     %d\n", result.Samples)
	if result.Collisions > 0 {
		fmt.Printf("  Close to others:    %d (see log)\n", result.Collisions)
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:             %d\n", len(result.Errors))
		keys := make([]string, 0, len(result.Errors))
		for k := range result.Errors {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Printf("    %s: %s\n", k, result.Errors[k])
		}
	}
	fmt.Printf("  Duration:           %s\n", time.Duration(result.DurationMs)*time.Millisecond)
	return nil
}

func enrollFile(ctx context.Context, svc *enrollment.Service, job enrollJob) (*enrollment.RegisterResult, error) {
	data, err := os.ReadFile(job.path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return svc.RegisterImage(ctx, job.identityID, data)
}
