package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sonaris/internal/aris"
	"sonaris/internal/config"
	"sonaris/internal/fan"
)

type recordingInfo struct {
	Path              string  `json:"path"`
	Version           uint8   `json:"version"`
	SerialNumber      uint32  `json:"serial_number"`
	RecordedAt        string  `json:"recorded_at"`
	BeamCount         uint32  `json:"beam_count"`
	SamplesPerChannel uint32  `json:"samples_per_channel"`
	FrameCount        uint32  `json:"frame_count"`
	StoredFrames      int     `json:"stored_frames"`
	FrameRate         uint32  `json:"frame_rate"`
	SampleRate        float32 `json:"sample_rate"`
	WindowStart       float32 `json:"window_start_m"`
	WindowEnd         float32 `json:"window_end_m"`
	HighFrequency     bool    `json:"high_frequency"`
	Reverse           bool    `json:"reverse"`
	ImageWidth        int     `json:"image_width,omitempty"`
	ImageHeight       int     `json:"image_height,omitempty"`
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <recording>",
		Short: "Show recording header details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			reader, err := aris.Open(path)
			if err != nil {
				return err
			}
			defer reader.Close()

			header := reader.Header()
			info := recordingInfo{
				Path:              reader.Path(),
				Version:           header.Version,
				SerialNumber:      header.SerialNumber,
				RecordedAt:        header.RecordedAt,
				BeamCount:         header.BeamCount,
				SamplesPerChannel: header.SamplesPerChannel,
				FrameCount:        header.FrameCount,
				StoredFrames:      reader.StoredFrameCount(),
				FrameRate:         header.FrameRate,
				SampleRate:        header.SampleRate,
				WindowStart:       header.WindowStart,
				WindowEnd:         header.WindowEnd(),
				HighFrequency:     header.HighFrequency,
				Reverse:           header.Reverse,
			}

			// projected image size, when the beam count has a calibration
			if projector, err := fan.NewProjector(fan.Geometry{
				Beams:       int(header.BeamCount),
				Bins:        int(header.SamplesPerChannel),
				WindowStart: float64(header.WindowStart),
				WindowEnd:   float64(header.WindowEnd()),
			}); err == nil {
				info.ImageWidth, info.ImageHeight = projector.Size()
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			rows := [][]string{
				{"Path", info.Path},
				{"Version", fmt.Sprintf("%d", info.Version)},
				{"Serial number", fmt.Sprintf("%d", info.SerialNumber)},
				{"Recorded at", info.RecordedAt},
				{"Beams", fmt.Sprintf("%d", info.BeamCount)},
				{"Samples per beam", fmt.Sprintf("%d", info.SamplesPerChannel)},
				{"Frames (declared)", fmt.Sprintf("%d", info.FrameCount)},
				{"Frames (stored)", fmt.Sprintf("%d", info.StoredFrames)},
				{"Frame rate", fmt.Sprintf("%d/s", info.FrameRate)},
				{"Sample rate", fmt.Sprintf("%.0f Hz", info.SampleRate)},
				{"Window", fmt.Sprintf("%.2f m to %.2f m", info.WindowStart, info.WindowEnd)},
				{"High frequency", yesNo(info.HighFrequency)},
				{"Reversed", yesNo(info.Reverse)},
			}
			if info.ImageWidth > 0 {
				rows = append(rows, []string{"Image size", fmt.Sprintf("%dx%d", info.ImageWidth, info.ImageHeight)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}
