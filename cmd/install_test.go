package cmd

import (
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func TestDaemonArgs(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("player", "kew", "")
	fs.Bool("hide-button", false, "")
	fs.String("size", "150x150", "")
	fs.Int("retries", 3, "")

	if err := fs.Parse([]string{"--player", "spotify", "--hide-button", "--retries=5"}); err != nil {
		t.Fatal(err)
	}

	got := daemonArgs(fs)
	want := []string{"--hide-button=true", "--player=spotify", "--retries=5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("daemonArgs() = %v, want %v", got, want)
	}
}
