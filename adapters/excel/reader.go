package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gospike/domain/core"
	"gospike/domain/spikes"
	"gospike/internal"
)

// DataReader handles reading spike datasets from Excel and CSV files.
// Expected layout: a header row, then one spike per row with columns
// trial, neuron, time_ms (trial and neuron are zero-based indices).
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	log      *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, log: internal.DefaultLogger}
}

// ReadTrialSet reads the file and assembles a validated TrialSet over the
// given span. Trials and neurons are densified to 0..max, so a neuron with
// no rows anywhere still appears as an empty (silent) train.
func (r *DataReader) ReadTrialSet(tStart, tStop core.Millis) (*spikes.TrialSet, error) {
	r.log.Info("[DataReader] Reading %s spike file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("spike file must have a header row and at least one data row")
	}

	return r.assembleTrialSet(rows, tStart, tStop)
}

// readExcelRows reads Sheet1 of an xlsx workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	r.log.Debug("[DataReader] Sheet1 read (%d rows)", len(rows))
	return rows, nil
}

// readCSVRows reads all records of a CSV file
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.log.Debug("[DataReader] CSV file read (%d rows)", len(rows))
	return rows, nil
}

// assembleTrialSet converts raw string rows into a validated TrialSet
func (r *DataReader) assembleTrialSet(rows [][]string, tStart, tStop core.Millis) (*spikes.TrialSet, error) {
	byTrial := make(map[int]map[int][]core.Millis)
	maxTrial, maxNeuron := -1, -1

	for i, row := range rows[1:] {
		line := i + 2 // 1-based, after header
		if len(row) < 3 {
			return nil, fmt.Errorf("row %d: expected columns trial, neuron, time_ms", line)
		}

		trial, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil || trial < 0 {
			return nil, fmt.Errorf("row %d: invalid trial index %q", line, row[0])
		}
		neuron, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || neuron < 0 {
			return nil, fmt.Errorf("row %d: invalid neuron index %q", line, row[1])
		}
		t, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid spike time %q", line, row[2])
		}

		if byTrial[trial] == nil {
			byTrial[trial] = make(map[int][]core.Millis)
		}
		byTrial[trial][neuron] = append(byTrial[trial][neuron], core.Millis(t))
		if trial > maxTrial {
			maxTrial = trial
		}
		if neuron > maxNeuron {
			maxNeuron = neuron
		}
	}

	if maxTrial < 0 || maxNeuron < 0 {
		return nil, fmt.Errorf("spike file contains no data rows")
	}

	trials := make([]spikes.Trial, maxTrial+1)
	for trial := 0; trial <= maxTrial; trial++ {
		trains := make([]spikes.SpikeTrain, maxNeuron+1)
		for neuron := 0; neuron <= maxNeuron; neuron++ {
			train, err := spikes.NewSpikeTrain(byTrial[trial][neuron], tStart, tStop)
			if err != nil {
				return nil, fmt.Errorf("trial %d neuron %d: %w", trial, neuron, err)
			}
			trains[neuron] = train
		}
		trials[trial] = spikes.Trial{Trains: trains}
	}

	set, err := spikes.NewTrialSet(trials)
	if err != nil {
		return nil, err
	}
	r.log.Info("[DataReader] Loaded %d trials x %d neurons over [%v, %v]",
		set.NumTrials(), set.NumNeurons, tStart, tStop)
	return set, nil
}
