package audio

import "os/exec"

func runFFmpeg(args ...string) error {
	return exec.Command("ffmpeg", args...).Run()
}
