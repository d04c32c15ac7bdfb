package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"driverdock/internal/models"
)

// Runner executes external commands. Injectable so installs can be
// tested without touching the system's driver store.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// Installer downloads driver bundles from the dashboard server and
// drives the platform install tools.
type Installer struct {
	serverURL string
	workDir   string
	client    *http.Client
	runner    Runner
}

// NewInstaller creates an installer. client and runner may be nil.
func NewInstaller(serverURL, workDir string, client *http.Client, runner Runner) *Installer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &Installer{
		serverURL: strings.TrimRight(serverURL, "/"),
		workDir:   workDir,
		client:    client,
		runner:    runner,
	}
}

// Install runs the full pipeline for one device: fetch the driver
// bundle, stage it into the driver store, then bind the device.
func (i *Installer) Install(ctx context.Context, req models.InstallRequest) error {
	if req.IP == "" || req.Model == "" || req.Variant == "" {
		return fmt.Errorf("ip, model and variant are required")
	}

	bundle, err := i.fetchBundle(ctx, req.Model, req.Variant)
	if err != nil {
		return fmt.Errorf("fetch driver bundle: %w", err)
	}
	defer os.Remove(bundle)

	if err := i.stageDriver(ctx, bundle); err != nil {
		return fmt.Errorf("stage driver: %w", err)
	}

	if req.Printer || req.Variant == "printer" || req.Variant == "all" {
		if err := i.bindPrinter(ctx, req); err != nil {
			return fmt.Errorf("configure printer: %w", err)
		}
	}
	if req.Scanner || req.Variant == "scanner" || req.Variant == "all" {
		if err := i.bindScanner(ctx, req); err != nil {
			return fmt.Errorf("configure scanner: %w", err)
		}
	}

	log.Printf("✅ Installed %s drivers for %s (%s)", req.Variant, req.Model, req.IP)
	return nil
}

// fetchBundle downloads the driver artifact for a model/variant into
// the work directory and returns the local path.
func (i *Installer) fetchBundle(ctx context.Context, model, variant string) (string, error) {
	u := fmt.Sprintf("%s/dl/drivers?model=%s&variant=%s",
		i.serverURL, url.QueryEscape(model), url.QueryEscape(variant))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	name := filepath.Base(resp.Request.URL.Path)
	if name == "/" || name == "." || name == "" {
		name = "driver-bundle.exe"
	}
	dest := filepath.Join(i.workDir, name)

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(dest)
		return "", err
	}

	log.Printf("📦 Downloaded %s", dest)
	return dest, nil
}

// stageDriver extracts the bundle and adds its driver packages to the
// system driver store.
func (i *Installer) stageDriver(ctx context.Context, bundle string) error {
	extractDir := strings.TrimSuffix(bundle, filepath.Ext(bundle))
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return err
	}

	// Vendor bundles are self-extracting archives.
	if out, err := i.runner.Run(ctx, bundle, "/auto", extractDir); err != nil {
		return fmt.Errorf("extract: %v: %s", err, strings.TrimSpace(out))
	}

	if out, err := i.runner.Run(ctx, "pnputil.exe",
		"/add-driver", filepath.Join(extractDir, "*.inf"), "/subdirs", "/install"); err != nil {
		return fmt.Errorf("pnputil: %v: %s", err, strings.TrimSpace(out))
	}
	return nil
}

// bindPrinter creates the TCP/IP port and the printer itself.
func (i *Installer) bindPrinter(ctx context.Context, req models.InstallRequest) error {
	portName := "IP_" + req.IP
	if out, err := i.runner.Run(ctx, "cscript.exe", "//NoLogo",
		`C:\Windows\System32\Printing_Admin_Scripts\en-US\prnport.vbs`,
		"-a", "-r", portName, "-h", req.IP, "-o", "raw", "-n", "9100"); err != nil {
		return fmt.Errorf("create port: %v: %s", err, strings.TrimSpace(out))
	}

	name := req.Model
	if req.Host != "" {
		name = fmt.Sprintf("%s (%s)", req.Model, req.Host)
	}
	if out, err := i.runner.Run(ctx, "rundll32.exe", "printui.dll,PrintUIEntry",
		"/if", "/b", name, "/r", portName, "/m", req.Model); err != nil {
		return fmt.Errorf("add printer: %v: %s", err, strings.TrimSpace(out))
	}
	return nil
}

// bindScanner registers the device with the scan service.
func (i *Installer) bindScanner(ctx context.Context, req models.InstallRequest) error {
	if out, err := i.runner.Run(ctx, "wiainst.exe", "/add", req.IP, "/model", req.Model); err != nil {
		return fmt.Errorf("register scanner: %v: %s", err, strings.TrimSpace(out))
	}
	return nil
}
