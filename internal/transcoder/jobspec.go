package transcoder

import (
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"

	"pool-transcoder/internal/store"
	"pool-transcoder/pkg/models"
)

// Output settings requested from the job service. Every pool video is
// normalised to a single H.264/AAC MP4 rendition.
const (
	ContainerMP4     = "MP4"
	VideoCodecH264   = "H_264"
	AudioCodecAAC    = "AAC"
	AudioBitrate     = 128000
	outputExtension  = ".mp4"
	defaultOutputKey = "video"
)

// OutputLayout maps a video to its object storage destination and the public
// URL the transcoded file will be served from.
type OutputLayout struct {
	Destination string
	PublicURL   string
}

// Locate returns the job destination (without extension, the service appends
// it) and the predicted public URL of the rendition.
func (l OutputLayout) Locate(projectID uuid.UUID, filename string) (destination, publicURL string) {
	stem := fileStem(filename)
	destination = joinPrefix(l.Destination, projectID.String()+"/"+stem)
	publicURL = joinPrefix(l.PublicURL, projectID.String()+"/"+url.PathEscape(stem)) + outputExtension
	return destination, publicURL
}

// TargetHeight caps the source height at max. Unknown heights use max.
func TargetHeight(source, max int) int {
	if source <= 0 || source > max {
		return max
	}
	return source
}

// bitrateFor picks a video bitrate in bits per second for a rendition height.
func bitrateFor(height int) int {
	switch {
	case height >= 720:
		return 2_500_000
	case height >= 480:
		return 1_200_000
	default:
		return 800_000
	}
}

// BuildJobSpec describes the job for v and returns it with the predicted output URL.
func BuildJobSpec(v store.PoolVideo, maxHeight int, layout OutputLayout) (*models.JobSpec, string) {
	height := TargetHeight(v.Height, maxHeight)
	destination, outputURL := layout.Locate(v.ProjectID, sourceName(v))

	spec := &models.JobSpec{
		Input: models.InputSpec{
			SourceURL: v.VideoURL,
			Format:    v.Format,
		},
		Outputs: []models.OutputSpec{{
			Destination:  destination,
			Container:    ContainerMP4,
			VideoCodec:   VideoCodecH264,
			Height:       height,
			Bitrate:      bitrateFor(height),
			AudioCodec:   AudioCodecAAC,
			AudioBitrate: AudioBitrate,
		}},
		UserMetadata: map[string]string{
			"poolVideoId": v.ID.String(),
			"projectId":   v.ProjectID.String(),
		},
	}
	return spec, outputURL
}

// sourceName prefers the uploaded filename, then the last path segment of the
// stored URL, then the video id.
func sourceName(v store.PoolVideo) string {
	if v.OriginalFilename != "" {
		return v.OriginalFilename
	}
	if u, err := url.Parse(v.VideoURL); err == nil && u.Path != "" && u.Path != "/" {
		return path.Base(u.Path)
	}
	return v.ID.String()
}

func fileStem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return defaultOutputKey
	}
	return stem
}

func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + key
}
