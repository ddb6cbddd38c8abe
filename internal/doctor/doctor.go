// Package doctor runs preflight checks for the client and server binaries.
package doctor

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/gordonklaus/portaudio"
)

type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// RunChecks performs runtime preflight checks and returns results.
// role should be "client" or "server".
func RunChecks(role string) []CheckResult {
	var results []CheckResult

	// OS/Arch
	results = append(results, CheckResult{
		Name:   "platform",
		OK:     true,
		Detail: fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})

	if role == "client" {
		results = append(results, checkLib("libportaudio"))
		results = append(results, checkLib("libopus"))
		results = append(results, checkInputDevice())
	}

	if role == "server" {
		results = append(results, checkLib("libopus"))
		results = append(results, checkEnv("ANTHROPIC_API_KEY", "needed for Claude analysis"))
		results = append(results, checkEnv("OPENAI_API_KEY", "needed for GPT analysis and Whisper STT"))

		tts := checkEnv("GAMECOACH_TTS_URL", "")
		if !tts.OK {
			tts.Detail = "not set (optional, spoken answers disabled)"
			tts.OK = true
		}
		results = append(results, tts)
	}

	return results
}

// PrintResults prints check results and returns true if all passed.
func PrintResults(results []CheckResult) bool {
	allOK := true
	for _, r := range results {
		status := "✅"
		if !r.OK {
			status = "❌"
			allOK = false
		}
		fmt.Fprintf(os.Stderr, "  %s %-20s %s\n", status, r.Name, r.Detail)
	}

	if !allOK {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Install missing dependencies:")
		if isDebian() {
			fmt.Fprintln(os.Stderr, "  sudo apt install -y libportaudio2 libportaudio-dev libopus-dev")
		} else {
			fmt.Fprintln(os.Stderr, "  sudo dnf install -y portaudio-devel opus-devel")
		}
	}

	return allOK
}

// checkInputDevice verifies a default capture device exists.
func checkInputDevice() CheckResult {
	if err := portaudio.Initialize(); err != nil {
		return CheckResult{Name: "input device", OK: false, Detail: err.Error()}
	}
	defer portaudio.Terminate()

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return CheckResult{Name: "input device", OK: false, Detail: "no default input device"}
	}
	return CheckResult{Name: "input device", OK: true, Detail: dev.Name}
}

func checkEnv(name, hint string) CheckResult {
	if os.Getenv(name) == "" {
		detail := "not set"
		if hint != "" {
			detail += " (" + hint + ")"
		}
		return CheckResult{Name: name, OK: false, Detail: detail}
	}
	return CheckResult{Name: name, OK: true, Detail: "set"}
}

func checkLib(name string) CheckResult {
	// Try ldconfig first
	out, err := exec.Command("ldconfig", "-p").Output()
	if err == nil {
		soName := name + ".so"
		for _, line := range strings.Split(string(out), "\n") {
			if strings.Contains(line, soName) {
				parts := strings.SplitN(line, "=>", 2)
				path := strings.TrimSpace(parts[len(parts)-1])
				return CheckResult{Name: name, OK: true, Detail: path}
			}
		}
	}

	// Check LD_LIBRARY_PATH
	for _, dir := range strings.Split(os.Getenv("LD_LIBRARY_PATH"), ":") {
		if dir == "" {
			continue
		}
		entries, _ := os.ReadDir(dir)
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), name+".so") {
				return CheckResult{Name: name, OK: true, Detail: dir + "/" + e.Name()}
			}
		}
	}

	return CheckResult{Name: name, OK: false, Detail: "not found"}
}

func isDebian() bool {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return false
	}
	s := strings.ToLower(string(data))
	return strings.Contains(s, "debian") || strings.Contains(s, "ubuntu") || strings.Contains(s, "raspbian")
}
