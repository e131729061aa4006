package inputs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/quimbydigital/client-report-automations/internal/models"
)

// ErrInputMissing is returned when a client month has none of the inputs
// a report needs. Partial inputs are reported via Missing instead so the
// job can proceed degraded.
var ErrInputMissing = errors.New("no report inputs found")

const (
	strategyDeckDir     = "Strategy_Deck"
	monthlyDataDir      = "Monthly_Data"
	processedDataDir    = "Processed_Data"
	generatedReportsDir = "Generated_Reports"
)

// ClientInputs is the resolved on-disk layout for one client month.
type ClientInputs struct {
	Client       string
	Month        string
	ClientDir    string
	StrategyDeck string // path to the strategy PDF, empty when absent
	Screenshots  []models.PlatformScreenshot
	Highlights   string // contents of the highlights note, empty when absent
	ProcessedDir string
	ReportsDir   string
	Missing      []string // human-readable missing input items
}

// Scanner resolves client directories under the configured root.
type Scanner struct {
	rootDir string
	logger  arbor.ILogger
}

func NewScanner(rootDir string, logger arbor.ILogger) *Scanner {
	return &Scanner{rootDir: rootDir, logger: logger}
}

// ListClients returns the client directory names under the root.
func (s *Scanner) ListClients() ([]string, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients root %s: %w", s.rootDir, err)
	}
	var clients []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			clients = append(clients, e.Name())
		}
	}
	sort.Strings(clients)
	return clients, nil
}

// LatestMonth returns the lexically greatest month directory for a client.
// Month directories use the sortable YYYY_MM_Name form, so lexical order
// is chronological order.
func (s *Scanner) LatestMonth(client string) (string, error) {
	dir := filepath.Join(s.rootDir, client, monthlyDataDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read monthly data for %s: %w", client, err)
	}
	var months []string
	for _, e := range entries {
		if e.IsDir() {
			months = append(months, e.Name())
		}
	}
	if len(months) == 0 {
		return "", fmt.Errorf("%w: no month directories for %s", ErrInputMissing, client)
	}
	sort.Strings(months)
	return months[len(months)-1], nil
}

// Scan resolves the inputs for a client month and creates the output
// directories. Returns ErrInputMissing only when no deck, no screenshots
// and no highlights exist at all; individually absent items are listed in
// Missing so the caller can degrade and notify.
func (s *Scanner) Scan(client, month string) (*ClientInputs, error) {
	clientDir := filepath.Join(s.rootDir, client)
	if _, err := os.Stat(clientDir); err != nil {
		return nil, fmt.Errorf("client directory not found: %s: %w", clientDir, err)
	}

	in := &ClientInputs{
		Client:       client,
		Month:        month,
		ClientDir:    clientDir,
		ProcessedDir: filepath.Join(clientDir, processedDataDir),
		ReportsDir:   filepath.Join(clientDir, generatedReportsDir),
	}

	for _, dir := range []string{in.ProcessedDir, in.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	in.StrategyDeck = s.findStrategyDeck(clientDir)
	if in.StrategyDeck == "" {
		in.Missing = append(in.Missing, "Strategy deck (PDF)")
	}

	monthDir := filepath.Join(clientDir, monthlyDataDir, month)
	in.Screenshots = s.findScreenshots(monthDir)
	if len(in.Screenshots) == 0 {
		in.Missing = append(in.Missing, "Performance screenshots (PNG, JPG)")
	}

	in.Highlights = s.readHighlights(monthDir)
	if in.Highlights == "" {
		in.Missing = append(in.Missing, "Highlights text file (TXT)")
	}

	if in.StrategyDeck == "" && len(in.Screenshots) == 0 && in.Highlights == "" {
		return in, fmt.Errorf("%w for %s %s", ErrInputMissing, client, month)
	}

	s.logger.Debug().
		Str("client", client).
		Str("month", month).
		Int("screenshots", len(in.Screenshots)).
		Bool("deck", in.StrategyDeck != "").
		Bool("highlights", in.Highlights != "").
		Msg("Scanned client inputs")

	return in, nil
}

// findStrategyDeck returns the first PDF in Strategy_Deck, by name.
func (s *Scanner) findStrategyDeck(clientDir string) string {
	dir := filepath.Join(clientDir, strategyDeckDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var decks []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			decks = append(decks, e.Name())
		}
	}
	if len(decks) == 0 {
		return ""
	}
	sort.Strings(decks)
	return filepath.Join(dir, decks[0])
}

func (s *Scanner) findScreenshots(monthDir string) []models.PlatformScreenshot {
	entries, err := os.ReadDir(monthDir)
	if err != nil {
		return nil
	}
	var shots []models.PlatformScreenshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			shots = append(shots, models.PlatformScreenshot{
				Path:     filepath.Join(monthDir, e.Name()),
				Filename: e.Name(),
				Platform: models.PlatformOther,
			})
		}
	}
	sort.Slice(shots, func(i, j int) bool { return shots[i].Filename < shots[j].Filename })
	return shots
}

// readHighlights reads the first *highlight*.txt note in the month dir.
func (s *Scanner) readHighlights(monthDir string) string {
	entries, err := os.ReadDir(monthDir)
	if err != nil {
		return ""
	}
	var notes []string
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if !e.IsDir() && strings.HasSuffix(name, ".txt") && strings.Contains(name, "highlight") {
			notes = append(notes, e.Name())
		}
	}
	if len(notes) == 0 {
		return ""
	}
	sort.Strings(notes)
	data, err := os.ReadFile(filepath.Join(monthDir, notes[0]))
	if err != nil {
		s.logger.Warn().Err(err).Str("file", notes[0]).Msg("Failed to read highlights note")
		return ""
	}
	return strings.TrimSpace(string(data))
}
