package transcoder

import (
	"testing"

	"github.com/google/uuid"

	"pool-transcoder/internal/store"
)

func TestTargetHeight(t *testing.T) {
	tests := []struct {
		source, want int
	}{
		{2160, 720},
		{1080, 720},
		{720, 720},
		{480, 480},
		{360, 360},
		{0, 720},
		{-1, 720},
	}
	for _, tt := range tests {
		if got := TargetHeight(tt.source, 720); got != tt.want {
			t.Errorf("TargetHeight(%d) = %d, want %d", tt.source, got, tt.want)
		}
	}
}

func TestBuildJobSpec(t *testing.T) {
	project := uuid.MustParse("7d0c6a3e-1f7b-4a55-9a31-0f1f5a0b9c11")
	v := store.PoolVideo{
		ID:               uuid.New(),
		ProjectID:        project,
		VideoURL:         "https://raw.example.com/uploads/Pipe Run 3.MOV",
		OriginalFilename: "Pipe Run 3.MOV",
		Format:           "mov",
		Height:           1080,
	}

	spec, outputURL := BuildJobSpec(v, 720, testLayout)

	if spec.Input.SourceURL != v.VideoURL || spec.Input.Format != "mov" {
		t.Errorf("unexpected input: %+v", spec.Input)
	}
	if len(spec.Outputs) != 1 {
		t.Fatalf("expected one output, got %d", len(spec.Outputs))
	}
	out := spec.Outputs[0]
	if out.Height != 720 || out.Container != ContainerMP4 || out.VideoCodec != VideoCodecH264 || out.AudioCodec != AudioCodecAAC {
		t.Errorf("unexpected output: %+v", out)
	}
	if want := "s3://pool-bucket/transcoded/" + project.String() + "/Pipe Run 3"; out.Destination != want {
		t.Errorf("destination = %q, want %q", out.Destination, want)
	}
	if want := "https://cdn.example.com/transcoded/" + project.String() + "/Pipe%20Run%203.mp4"; outputURL != want {
		t.Errorf("output url = %q, want %q", outputURL, want)
	}
	if spec.UserMetadata["poolVideoId"] != v.ID.String() {
		t.Errorf("user metadata = %v", spec.UserMetadata)
	}
}

func TestBuildJobSpec_FallsBackToURLName(t *testing.T) {
	v := store.PoolVideo{
		ID:        uuid.New(),
		ProjectID: uuid.New(),
		VideoURL:  "https://raw.example.com/uploads/abc123.avi?sig=x",
	}

	_, outputURL := BuildJobSpec(v, 720, OutputLayout{PublicURL: "https://cdn/"})
	if want := "https://cdn/" + v.ProjectID.String() + "/abc123.mp4"; outputURL != want {
		t.Errorf("output url = %q, want %q", outputURL, want)
	}
}
