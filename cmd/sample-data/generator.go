package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"payroll-reconciliation-service/internal/ledger"
	"payroll-reconciliation-service/pkg/logger"
)

// Document is one generated payroll report
type Document struct {
	File  string
	Name  string
	Days  []time.Time
	Total decimal.Decimal
}

// ExpectedRow is the reconciliation outcome a scenario is built to produce.
// Row is zero for workers that belong on the review sheet.
type ExpectedRow struct {
	Worker    string
	Row       int
	Start     time.Time
	End       time.Time
	Amount    decimal.Decimal
	Documents int
}

// Scenario is a documents folder together with its ledger and expected outcome
type Scenario struct {
	Name        string
	Description string
	Documents   []Document
	LedgerNames []string
	Expected    []ExpectedRow
}

// ScenarioGenerator creates payroll test scenarios
type ScenarioGenerator struct {
	Seed      int64
	OutputDir string
	Workers   int

	rng    *rand.Rand
	layout *ledger.Config
	logger logger.Logger
}

// NewScenarioGenerator creates a generator writing below outputDir
func NewScenarioGenerator(outputDir string, seed int64, workers int) *ScenarioGenerator {
	return &ScenarioGenerator{
		Seed:      seed,
		OutputDir: outputDir,
		Workers:   workers,
		rng:       rand.New(rand.NewSource(seed)),
		layout:    ledger.DefaultConfig(),
		logger:    logger.WithComponent("sample-data"),
	}
}

var scenarioNames = []string{"spelling", "reversed", "unmatched", "unnamed", "random"}

// Scenario builds the named scenario
func (sg *ScenarioGenerator) Scenario(name string) (*Scenario, error) {
	switch name {
	case "spelling":
		return sg.spellingScenario(), nil
	case "reversed":
		return sg.reversedScenario(), nil
	case "unmatched":
		return sg.unmatchedScenario(), nil
	case "unnamed":
		return sg.unnamedScenario(), nil
	case "random":
		return sg.randomScenario(), nil
	default:
		return nil, fmt.Errorf("unknown scenario %q, use one of: %s, all", name, strings.Join(scenarioNames, ", "))
	}
}

// GenerateAll writes every scenario
func (sg *ScenarioGenerator) GenerateAll() error {
	for _, name := range scenarioNames {
		if err := sg.Generate(name); err != nil {
			return err
		}
	}
	return nil
}

// Generate builds the named scenario and writes it into its own folder
func (sg *ScenarioGenerator) Generate(name string) error {
	scenario, err := sg.Scenario(name)
	if err != nil {
		return err
	}
	return sg.Write(scenario)
}

// Write stores the documents, ledger.xlsx and expected.csv of scenario
func (sg *ScenarioGenerator) Write(scenario *Scenario) error {
	dir := filepath.Join(sg.OutputDir, scenario.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create scenario folder: %w", err)
	}

	for _, doc := range scenario.Documents {
		if err := os.WriteFile(filepath.Join(dir, doc.File), []byte(renderReport(doc)), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.File, err)
		}
	}

	if err := sg.writeLedger(filepath.Join(dir, "ledger.xlsx"), scenario.LedgerNames); err != nil {
		return err
	}

	if err := writeExpected(filepath.Join(dir, "expected.csv"), scenario.Expected); err != nil {
		return err
	}

	sg.logger.WithFields(logger.Fields{
		"scenario":  scenario.Name,
		"documents": len(scenario.Documents),
		"ledger":    len(scenario.LedgerNames),
		"dir":       dir,
	}).Info("Generated scenario")

	return nil
}

// spellingScenario spreads one worker over three reports with differently
// written names
func (sg *ScenarioGenerator) spellingScenario() *Scenario {
	s := &Scenario{
		Name:        "spelling",
		Description: "one worker written three ways merges into a single ledger row",
		LedgerNames: []string{"Kovács János", "Szabó Péter"},
	}

	spellings := []string{"Kovács János", "KOVÁCS JÁNOS", "Kovacs  Janos"}
	worker := sg.worker("Kovács János", 2)
	for i, spelling := range spellings {
		doc := sg.week(fmt.Sprintf("kovacs_week%d.txt", i+1), spelling, i)
		s.Documents = append(s.Documents, doc)
		worker.add(doc)
	}
	s.Expected = append(s.Expected, *worker)

	return s
}

// reversedScenario writes the name in given-name-first order
func (sg *ScenarioGenerator) reversedScenario() *Scenario {
	s := &Scenario{
		Name:        "reversed",
		Description: "a report with the name order swapped still finds its row",
		LedgerNames: []string{"Tóth Gergely", "Nagy Ákos"},
	}

	worker := sg.worker("Ákos Nagy", 3)
	doc := sg.week("nagy.txt", "Ákos Nagy", 0)
	worker.add(doc)

	s.Documents = append(s.Documents, doc)
	s.Expected = append(s.Expected, *worker)
	return s
}

// unmatchedScenario has a worker who is missing from the ledger
func (sg *ScenarioGenerator) unmatchedScenario() *Scenario {
	s := &Scenario{
		Name:        "unmatched",
		Description: "a worker without a ledger row lands on the review sheet",
		LedgerNames: []string{"Kiss Anna"},
	}

	kiss := sg.worker("Kiss Anna", 2)
	teszt := sg.worker("Teszt Elek", 0)

	for i, w := range []*ExpectedRow{kiss, teszt} {
		doc := sg.week(fmt.Sprintf("report_%d.txt", i+1), w.Worker, i)
		w.add(doc)
		s.Documents = append(s.Documents, doc)
	}

	s.Expected = append(s.Expected, *kiss, *teszt)
	return s
}

// unnamedScenario has a report without a name line
func (sg *ScenarioGenerator) unnamedScenario() *Scenario {
	s := &Scenario{
		Name:        "unnamed",
		Description: "reports without a name are grouped for manual review",
		LedgerNames: []string{"Farkas Zoltán"},
	}

	farkas := sg.worker("Farkas Zoltán", 2)
	named := sg.week("farkas.txt", "Farkas Zoltán", 0)
	farkas.add(named)

	unnamed := sg.worker("", 0)
	scan := sg.week("scan.txt", "", 1)
	unnamed.add(scan)

	s.Documents = append(s.Documents, named, scan)
	s.Expected = append(s.Expected, *farkas, *unnamed)
	return s
}

var workerPool = []string{
	"Balogh Csilla", "Lakatos Dénes", "Mészáros Ilona", "Vörös Benedek",
	"Fehér Katalin", "Somogyi Ödön", "Pintér Gizella", "Oláh Tivadar",
	"Bíró Henrietta", "Jakab Ferenc", "Szűcs Ottó", "Gulyás Emese",
}

// randomScenario spreads a seeded selection of workers over one to four weeks
// each, with a shuffled ledger that also lists workers without reports
func (sg *ScenarioGenerator) randomScenario() *Scenario {
	s := &Scenario{
		Name:        "random",
		Description: "seeded workers with varied spellings against a shuffled ledger",
	}

	pool := append([]string(nil), workerPool...)
	sg.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	count := sg.Workers
	if count <= 0 || count > len(pool) {
		count = len(pool)
	}

	s.LedgerNames = pool
	for i, name := range pool[:count] {
		worker := sg.worker(name, i+2)
		weeks := 1 + sg.rng.Intn(4)
		for week := 0; week < weeks; week++ {
			file := fmt.Sprintf("%s_week%d.txt", strings.ToLower(stripAccents(strings.Fields(name)[0])), week+1)
			doc := sg.week(file, sg.variant(name), week)
			worker.add(doc)
			s.Documents = append(s.Documents, doc)
		}
		s.Expected = append(s.Expected, *worker)
	}

	return s
}

func (sg *ScenarioGenerator) worker(name string, row int) *ExpectedRow {
	return &ExpectedRow{Worker: name, Row: row, Amount: decimal.Zero}
}

// week builds a report for the working days of the given week of January 2024
func (sg *ScenarioGenerator) week(file, name string, week int) Document {
	monday := time.Date(2024, time.January, 1+7*week, 0, 0, 0, 0, time.UTC)
	days := []time.Time{monday}
	extra := sg.rng.Intn(5)
	for d := 1; d <= extra; d++ {
		days = append(days, monday.AddDate(0, 0, d))
	}

	return Document{
		File:  file,
		Name:  name,
		Days:  days,
		Total: decimal.NewFromInt(int64(80+sg.rng.Intn(121)) * 1000),
	}
}

// variant writes name the way a report might
func (sg *ScenarioGenerator) variant(name string) string {
	switch sg.rng.Intn(4) {
	case 1:
		return strings.ToUpper(name)
	case 2:
		return stripAccents(name)
	case 3:
		return strings.Join(strings.Fields(name), "  ")
	default:
		return name
	}
}

func (e *ExpectedRow) add(doc Document) {
	first, last := doc.Days[0], doc.Days[len(doc.Days)-1]
	if e.Documents == 0 || first.Before(e.Start) {
		e.Start = first
	}
	if e.Documents == 0 || last.After(e.End) {
		e.End = last
	}
	e.Amount = e.Amount.Add(doc.Total)
	e.Documents++
}

var weekdays = map[time.Weekday][2]string{
	time.Monday:    {"Monday", "Hétfő"},
	time.Tuesday:   {"Tuesday", "Kedd"},
	time.Wednesday: {"Wednesday", "Szerda"},
	time.Thursday:  {"Thursday", "Csütörtök"},
	time.Friday:    {"Friday", "Péntek"},
}

// renderReport lays a document out like an exported weekly report. Odd days use
// the Hungarian weekday with a dotted date.
func renderReport(doc Document) string {
	var sb strings.Builder
	sb.WriteString("Weekly performance report\n")
	if doc.Name != "" {
		fmt.Fprintf(&sb, "Name: %s Company Kft.\n", doc.Name)
	}
	for i, day := range doc.Days {
		names := weekdays[day.Weekday()]
		if i%2 == 1 {
			fmt.Fprintf(&sb, "%s %s 8 hours\n", names[1], day.Format("2006.01.02"))
			continue
		}
		fmt.Fprintf(&sb, "%s %s 8 hours\n", names[0], day.Format("2006/01/02"))
	}
	fmt.Fprintf(&sb, "Összesen %s Ft\n", groupThousands(doc.Total))
	return sb.String()
}

func groupThousands(amount decimal.Decimal) string {
	digits := amount.IntPart()
	raw := fmt.Sprintf("%d", digits)

	var groups []string
	for len(raw) > 3 {
		groups = append([]string{raw[len(raw)-3:]}, groups...)
		raw = raw[:len(raw)-3]
	}
	groups = append([]string{raw}, groups...)
	return strings.Join(groups, " ")
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// writeLedger creates a ledger export with the given names from row 2 down
func (sg *ScenarioGenerator) writeLedger(path string, names []string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sg.layout.Sheet
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name ledger sheet: %w", err)
	}

	header := make([]interface{}, 0, 5)
	for _, column := range sg.layout.RequiredColumns() {
		header = append(header, column)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}

	for i, name := range names {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("failed to write ledger row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}
	return nil
}

// writeExpected records the outcome each scenario is built to produce
func writeExpected(path string, rows []ExpectedRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	records := [][]string{{"worker", "ledger_row", "period_start", "period_end", "amount", "documents"}}
	for _, row := range rows {
		records = append(records, []string{
			row.Worker,
			fmt.Sprintf("%d", row.Row),
			row.Start.Format("2006/01/02"),
			row.End.Format("2006/01/02"),
			row.Amount.String(),
			fmt.Sprintf("%d", row.Documents),
		})
	}

	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
