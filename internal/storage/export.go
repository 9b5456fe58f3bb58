package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/multibody/internal/config"
	"github.com/san-kum/multibody/internal/sim"
)

type ExportData struct {
	Model       string             `json:"model"`
	Integrator  string             `json:"integrator"`
	Controller  string             `json:"controller"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	DofNames    []string           `json:"dof_names"`
	Times       []float64          `json:"times"`
	States      []sim.State        `json:"states"`
	Controls    []sim.Control      `json:"controls"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
}

func NewExportData(cfg *config.Config, result *sim.Result) ExportData {
	return ExportData{
		Model:       cfg.Model,
		Integrator:  cfg.Integrator,
		Controller:  cfg.Controller,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		Steps:       result.StepsTaken,
		DofNames:    result.DofNames,
		Times:       result.Times,
		States:      result.States,
		Controls:    result.Controls,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
	}
}

// ExportJSON writes result as indented JSON to w.
func ExportJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(NewExportData(cfg, result)), "encode export")
}

func ExportJSONFile(path string, cfg *config.Config, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export")
	}
	if err := ExportJSON(f, cfg, result); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close export")
}
