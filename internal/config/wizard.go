package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/avlabs/labelsync/internal/model"
)

// WizardResult holds the user's choices for one device from the init wizard.
type WizardResult struct {
	Name     string
	Host     string
	Model    string
	Username string
	Password string
	AddMore  bool
}

// RunWizard collects fleet devices interactively until the user stops adding
// them, then returns a Config ready to save.
func RunWizard() (*Config, error) {
	cfg := &Config{}
	for {
		result, err := runDeviceForm(len(cfg.Fleet) + 1)
		if err != nil {
			return nil, err
		}
		cfg.Fleet = append(cfg.Fleet, DeviceConfig{
			Name:     result.Name,
			Host:     result.Host,
			Model:    result.Model,
			Username: result.Username,
			Password: result.Password,
		})
		if !result.AddMore {
			break
		}
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runDeviceForm(position int) (*WizardResult, error) {
	result := &WizardResult{Model: "mx32"}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Device %d name", position)).
				Description("A short identifier used in reports").
				Placeholder("studio-a").
				Value(&result.Name).
				Validate(validateDeviceName),

			huh.NewInput().
				Title("Host").
				Description("IP address or hostname of the router's management interface").
				Placeholder("192.168.1.100").
				Value(&result.Host).
				Validate(validateHost),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Router model").
				Description("Determines matrix size, label length limit, and bulk support").
				Options(modelOptions()...).
				Value(&result.Model),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Username (optional)").
				Description("Leave empty if the management API is unauthenticated").
				Value(&result.Username),

			huh.NewInput().
				Title("Password (optional)").
				EchoMode(huh.EchoModePassword).
				Value(&result.Password),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Add another device?").
				Value(&result.AddMore),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard aborted: %w", err)
	}
	return result, nil
}

func validateDeviceName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(name, " \t") {
		return fmt.Errorf("name must not contain whitespace")
	}
	return nil
}

func validateHost(host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return fmt.Errorf("host is required")
	}
	if ip := net.ParseIP(host); ip != nil {
		return nil
	}
	// Hostnames are accepted as-is; the transports resolve them.
	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("%q is not a valid host", host)
	}
	return nil
}

func modelOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, name := range model.ModelNames() {
		m, err := model.LookupModel(name)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("%s - %dx%d, %d-char labels", m.Name, m.Inputs, m.Outputs, m.MaxLabelLen)
		if !m.BulkCapable {
			label += ", no bulk API"
		}
		opts = append(opts, huh.NewOption(label, name))
	}
	return opts
}
