package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// ErrNoPlayer is returned when no system sound player could be found.
var ErrNoPlayer = errors.New("no sound player available")

// ExecRunner plays files through a system command line player.
type ExecRunner struct {
	player string
	path   string
}

// NewExecRunner picks a player for the current OS. A non-empty preferred
// name (paplay, pw-play, ffplay, aplay, afplay, powershell) overrides
// detection.
func NewExecRunner(preferred string) (*ExecRunner, error) {
	candidates := defaultPlayers(runtime.GOOS)
	if preferred != "" {
		candidates = []string{preferred}
	}
	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err == nil {
			return &ExecRunner{player: name, path: path}, nil
		}
	}
	return nil, fmt.Errorf("%w (tried %s)", ErrNoPlayer, strings.Join(candidates, ", "))
}

// Player names the selected command.
func (runner *ExecRunner) Player() string {
	return runner.player
}

// Run plays file once. aplay has no volume control, so a muted volume
// keeps it silent until ctx ends instead of playing at full level.
func (runner *ExecRunner) Run(ctx context.Context, file string, volume int) error {
	if volume <= 0 && fixedVolume(runner.player) {
		<-ctx.Done()
		return nil
	}
	cmd := exec.CommandContext(ctx, runner.path, playerArgs(runner.player, file, volume)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", runner.player, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func defaultPlayers(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"afplay"}
	case "windows":
		return []string{"ffplay", "powershell"}
	default:
		return []string{"paplay", "pw-play", "ffplay", "aplay"}
	}
}

// fixedVolume reports players that always play at the system level.
func fixedVolume(player string) bool {
	switch player {
	case "paplay", "pw-play", "ffplay", "afplay", "powershell":
		return false
	default:
		return true
	}
}

// playerArgs builds the argument list; volume is 0-100.
func playerArgs(player, file string, volume int) []string {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	switch player {
	case "paplay":
		return []string{"--volume=" + strconv.Itoa(volume*65536/100), file}
	case "pw-play":
		return []string{"--volume=" + strconv.FormatFloat(float64(volume)/100, 'f', 2, 64), file}
	case "afplay":
		return []string{"-v", strconv.FormatFloat(float64(volume)/100, 'f', 2, 64), file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-volume", strconv.Itoa(volume), file}
	case "powershell":
		return []string{"-NoProfile", "-NonInteractive", "-Command", mediaPlayerScript(file, volume)}
	default:
		return []string{file}
	}
}

// mediaPlayerScript plays file through WPF's MediaPlayer, which unlike
// SoundPlayer has a volume, and blocks until the sound ends.
func mediaPlayerScript(file string, volume int) string {
	return fmt.Sprintf("Add-Type -AssemblyName PresentationCore; "+
		"$p = New-Object System.Windows.Media.MediaPlayer; "+
		"$p.Volume = %s; "+
		"$p.Open([uri]'%s'); "+
		"for ($i = 0; $i -lt 100 -and -not $p.NaturalDuration.HasTimeSpan; $i++) { Start-Sleep -Milliseconds 50 }; "+
		"$p.Play(); "+
		"if ($p.NaturalDuration.HasTimeSpan) { Start-Sleep -Milliseconds ([int]$p.NaturalDuration.TimeSpan.TotalMilliseconds + 100) } else { Start-Sleep -Seconds 3 }; "+
		"$p.Close()",
		strconv.FormatFloat(float64(volume)/100, 'f', 2, 64),
		strings.ReplaceAll(file, "'", "''"))
}
