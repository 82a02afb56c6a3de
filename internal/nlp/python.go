package nlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wgomg/lexmetrics/internal/config"
	"github.com/wgomg/lexmetrics/internal/utils"
)

const requirementsMarker = "requirements.installed"

type PythonParser struct {
	logger *utils.Logger
	script string
	venv   string
	cfg    *config.NlpConfig

	mu     sync.Mutex
	worker *pythonWorker
}

type pythonWorker struct {
	process *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	dead    bool
}

type pythonConfig struct {
	ModelName string `json:"model_name"`
	MaxLength int    `json:"max_length"`
}

type pythonReady struct {
	Status   string   `json:"status"`
	Model    string   `json:"model"`
	Pipeline []string `json:"pipeline"`
	Error    string   `json:"error,omitempty"`
}

type pythonRequest struct {
	Text string `json:"text"`
}

type pythonToken struct {
	Text    string `json:"text"`
	IsPunct bool   `json:"is_punct"`
	IsSpace bool   `json:"is_space"`
	I       int    `json:"i"`
	Head    int    `json:"head"`
}

type pythonResponse struct {
	Tokens           []pythonToken `json:"tokens"`
	Error            string        `json:"error,omitempty"`
	ProcessingTimeMS int           `json:"processing_time_ms"`
}

func NewPythonParser(logger *utils.Logger, cfg *config.NlpConfig) *PythonParser {
	pythonDir := filepath.Join(cfg.Python.ConfigDir, "python")

	return &PythonParser{
		logger: logger,
		script: filepath.Join(pythonDir, "spacy_parser.py"),
		venv:   filepath.Join(cfg.Python.ConfigDir, "venv"),
		cfg:    cfg,
	}
}

func (p *PythonParser) Name() string {
	return config.EngineSpacy
}

// Initialize prepares the Python environment and loads the model. It must
// succeed before any document is parsed.
func (p *PythonParser) Initialize(ctx context.Context) error {
	p.logger.Info(nil, "Initializing spaCy parser with model %s", p.cfg.Model)

	if err := p.setupEnvironment(ctx); err != nil {
		return fmt.Errorf("%w: failed to setup environment: %w", ErrEngineUnavailable, err)
	}

	startCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.Python.ProcessStartupTimeout)*time.Second)
	defer cancel()

	worker, err := p.startWorker(startCtx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	p.mu.Lock()
	p.worker = worker
	p.mu.Unlock()

	p.logger.Info(nil, "spaCy parser initialized successfully")
	return nil
}

func (p *PythonParser) startWorker(ctx context.Context) (*pythonWorker, error) {
	python := filepath.Join(p.venv, "bin", "python")

	cmd := exec.Command(python, p.script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	worker := newPythonWorker(stdin, stdout)
	worker.process = cmd

	ready, err := worker.handshake(ctx, pythonConfig{ModelName: p.cfg.Model, MaxLength: p.cfg.MaxLength})
	if err != nil {
		worker.kill()
		return nil, err
	}

	p.logger.Debug(nil, "spaCy worker ready (model=%s, pipeline=%s)", ready.Model, strings.Join(ready.Pipeline, ","))
	return worker, nil
}

func newPythonWorker(stdin io.WriteCloser, stdout io.Reader) *pythonWorker {
	return &pythonWorker{
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
	}
}

func (w *pythonWorker) handshake(ctx context.Context, cfg pythonConfig) (*pythonReady, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	configJSON = append(configJSON, '\n')
	if _, err := w.stdin.Write(configJSON); err != nil {
		return nil, fmt.Errorf("send config: %w", err)
	}

	type result struct {
		line []byte
		err  error
	}
	lines := make(chan result, 1)
	go func() {
		line, err := w.stdout.ReadBytes('\n')
		lines <- result{line: line, err: err}
	}()

	var line []byte
	select {
	case res := <-lines:
		if res.err != nil && len(bytes.TrimSpace(res.line)) == 0 {
			return nil, fmt.Errorf("failed to read ready message: %w", res.err)
		}
		line = res.line
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for ready message: %w", ctx.Err())
	}

	var ready pythonReady
	if err := json.Unmarshal(line, &ready); err != nil {
		return nil, fmt.Errorf("failed to parse ready message: %w", err)
	}

	if ready.Status != "ready" {
		if ready.Error != "" {
			return nil, fmt.Errorf("unexpected startup status %s: %s", ready.Status, ready.Error)
		}
		return nil, fmt.Errorf("unexpected startup status: %s", ready.Status)
	}

	return &ready, nil
}

func (w *pythonWorker) parse(text string) (*pythonResponse, error) {
	reqJSON, err := json.Marshal(pythonRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqJSON = append(reqJSON, '\n')
	if _, err := w.stdin.Write(reqJSON); err != nil {
		w.dead = true
		return nil, fmt.Errorf("%w: write request: %w", ErrEngineUnavailable, err)
	}

	line, err := w.stdout.ReadBytes('\n')
	if err != nil {
		if len(bytes.TrimSpace(line)) == 0 {
			w.dead = true
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: stdout closed", ErrEngineUnavailable)
			}
			return nil, fmt.Errorf("%w: read stdout: %w", ErrEngineUnavailable, err)
		}
	}

	var resp pythonResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

func (p *PythonParser) Parse(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.worker == nil || p.worker.dead {
		return nil, fmt.Errorf("%w: spaCy worker is not running", ErrEngineUnavailable)
	}

	resp, err := p.worker.parse(text)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &EngineError{Engine: p.Name(), Message: utils.Truncate(resp.Error, 300)}
	}

	p.logger.Debug(nil, "spaCy parsed %d tokens in %dms", len(resp.Tokens), resp.ProcessingTimeMS)

	doc := &Document{Tokens: make([]Token, len(resp.Tokens))}
	for i, tok := range resp.Tokens {
		doc.Tokens[i] = Token{
			Text:    tok.Text,
			IsPunct: tok.IsPunct,
			IsSpace: tok.IsSpace,
			Index:   tok.I,
			Head:    tok.Head,
		}
	}
	return doc, nil
}

func (w *pythonWorker) kill() {
	if w.stdin != nil {
		w.stdin.Close()
	}
	if w.process != nil && w.process.Process != nil {
		w.process.Process.Kill()
		w.process.Wait()
	}
	w.dead = true
}

// Close closes the worker's stdin and waits for it to exit, killing it once
// the shutdown timeout passes.
func (p *PythonParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.worker
	if w == nil {
		return nil
	}
	p.worker = nil

	if w.stdin != nil {
		w.stdin.Close()
	}
	if w.process == nil || w.process.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- w.process.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			p.logger.Debug(nil, "spaCy worker exited: %v", err)
		}
		return nil
	case <-time.After(time.Duration(p.cfg.Python.ProcessShutdownTimeout) * time.Second):
		p.logger.Warn(nil, "spaCy worker did not exit in %ds, killing it", p.cfg.Python.ProcessShutdownTimeout)
		if err := w.process.Process.Kill(); err != nil {
			return fmt.Errorf("kill spaCy worker: %w", err)
		}
		<-done
		return nil
	}
}

func (p *PythonParser) setupEnvironment(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.Python.ConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := p.extractScriptIfNeeded(); err != nil {
		return fmt.Errorf("failed to extract script: %w", err)
	}

	if err := p.checkPython(ctx); err != nil {
		return fmt.Errorf("python check failed: %w", err)
	}

	if err := p.createVenv(ctx); err != nil {
		return fmt.Errorf("failed to create venv: %w", err)
	}

	if err := p.installRequirements(ctx); err != nil {
		return fmt.Errorf("failed to install requirements: %w", err)
	}

	if err := p.ensureModel(ctx); err != nil {
		return fmt.Errorf("failed to provide model %s: %w", p.cfg.Model, err)
	}

	return nil
}

func (p *PythonParser) checkPython(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "python3", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("python3 not found: %w", err)
	}

	p.logger.Debug(nil, "Python3 found")
	return nil
}

func (p *PythonParser) createVenv(ctx context.Context) error {
	venvPython := filepath.Join(p.venv, "bin", "python")

	if _, err := os.Stat(venvPython); err == nil {
		p.logger.Debug(nil, "Virtual environment already exists at %s", p.venv)
		return nil
	}

	p.logger.Info(nil, "Creating virtual environment at %s", p.venv)

	cmd := exec.CommandContext(ctx, "python3", "-m", "venv", p.venv)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create venv: %s: %w", output, err)
	}

	p.logger.Info(nil, "Virtual environment created successfully")
	return nil
}

func (p *PythonParser) installRequirements(ctx context.Context) error {
	requirementsPath := filepath.Join(filepath.Dir(p.script), "requirements.txt")
	requirements, err := os.ReadFile(requirementsPath)
	if err != nil {
		return fmt.Errorf("read requirements: %w", err)
	}

	markerPath := filepath.Join(p.venv, requirementsMarker)
	if installed, err := os.ReadFile(markerPath); err == nil && bytes.Equal(installed, requirements) {
		p.logger.Debug(nil, "Python requirements already installed")
		return nil
	}

	p.logger.Info(nil, "Installing Python requirements")

	venvPip := filepath.Join(p.venv, "bin", "pip")
	cmd := exec.CommandContext(ctx, venvPip, "install", "-r", requirementsPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pip install: %s: %w", output, err)
	}

	if err := os.WriteFile(markerPath, requirements, 0644); err != nil {
		return fmt.Errorf("write requirements marker: %w", err)
	}

	p.logger.Info(nil, "Python requirements installed successfully")
	return nil
}

// ensureModel downloads the configured spaCy package unless it is already
// installed or names a model directory on disk.
func (p *PythonParser) ensureModel(ctx context.Context) error {
	if info, err := os.Stat(p.cfg.Model); err == nil && info.IsDir() {
		p.logger.Debug(nil, "Using model directory %s", p.cfg.Model)
		return nil
	}

	venvPython := filepath.Join(p.venv, "bin", "python")

	check := exec.CommandContext(ctx, venvPython, "-c",
		"import sys, spacy.util; sys.exit(0 if spacy.util.is_package(sys.argv[1]) else 1)", p.cfg.Model)
	if err := check.Run(); err == nil {
		p.logger.Debug(nil, "spaCy model %s already installed", p.cfg.Model)
		return nil
	}

	p.logger.Info(nil, "Downloading spaCy model %s", p.cfg.Model)

	cmd := exec.CommandContext(ctx, venvPython, "-m", "spacy", "download", p.cfg.Model)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("spacy download: %s: %w", utils.Truncate(string(output), 500), err)
	}

	p.logger.Info(nil, "spaCy model %s downloaded", p.cfg.Model)
	return nil
}

func (p *PythonParser) extractScriptIfNeeded() error {
	pythonDir := filepath.Dir(p.script)

	if err := os.MkdirAll(pythonDir, 0755); err != nil {
		return fmt.Errorf("failed to create python directory: %w", err)
	}

	if existing, err := os.ReadFile(p.script); err == nil && string(existing) == embeddedPythonScript {
		p.logger.Debug(nil, "Python script already up to date at %s", p.script)
	} else {
		p.logger.Info(nil, "Extracting embedded Python script to %s", p.script)
		if err := os.WriteFile(p.script, []byte(embeddedPythonScript), 0755); err != nil {
			return fmt.Errorf("failed to write python script: %w", err)
		}
	}

	requirementsPath := filepath.Join(pythonDir, "requirements.txt")
	requirementsContent := embeddedRequirements
	if strings.TrimSpace(requirementsContent) == "" {
		requirementsContent = defaultRequirements
	}

	if err := os.WriteFile(requirementsPath, []byte(requirementsContent), 0644); err != nil {
		return fmt.Errorf("failed to write requirements file: %w", err)
	}

	return nil
}
