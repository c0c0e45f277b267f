package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hlsplay/hlsplay/constant"
	"github.com/hlsplay/hlsplay/icon"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/log"
	"github.com/hlsplay/hlsplay/style"
	"github.com/hlsplay/hlsplay/version"
	"github.com/spf13/viper"
)

// minMPV is the oldest mpv whose JSON IPC has every command the player sends.
const minMPV = "0.33.0"

var installHints = map[string]string{
	constant.Darwin:  "brew install mpv",
	constant.Linux:   "sudo apt install mpv",
	constant.Windows: "scoop install mpv",
	constant.Android: "pkg install mpv",
}

// CheckDependencies exits with install instructions when the configured mpv
// binary cannot be found. An outdated mpv is only logged.
func CheckDependencies() {
	binary := viper.GetString(key.PlayerBinary)
	if _, err := exec.LookPath(binary); err != nil {
		log.Errorf("look up %s: %v", binary, err)
		printMissingDependency(binary)
		os.Exit(1)
	}

	v, err := mpvVersion(binary)
	if err != nil {
		log.Warnf("mpv version: %v", err)
		return
	}

	if c, err := version.Compare(v, minMPV); err == nil && c < 0 {
		log.Warnf("mpv %s is older than %s, some controls may not work", v, minMPV)
	}
}

// mpvVersion runs binary --version and returns the number from its first
// line, e.g. "0.38.0" from "mpv v0.38.0 Copyright © 2000-2024 mpv/MPlayer/mplayer2 projects".
func mpvVersion(binary string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", err
	}
	return parseMPVVersion(string(out))
}

func parseMPVVersion(output string) (string, error) {
	line, _, _ := strings.Cut(output, "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "mpv" {
		return "", fmt.Errorf("unexpected version output %q", line)
	}
	return strings.TrimPrefix(fields[1], "v"), nil
}

func printMissingDependency(dep string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s %s not found", icon.Get(icon.Fail), dep))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("hlsplay plays streams through mpv. Install it or point %s at it.", key.PlayerBinary))

	lines := []string{title, "", body}
	if hint, ok := installHints[runtime.GOOS]; ok {
		lines = append(lines, "", "Try:", "  "+style.New().Foreground(style.AccentColor).Bold(true).Render(hint))
	}

	fmt.Println(box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}
