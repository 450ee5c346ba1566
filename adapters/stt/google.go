package stt

import (
	"context"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/repositories"
)

// GoogleRecognizer implements repositories.Recognizer over Google Cloud
// Speech-to-Text. One client is shared across calls; each Recognize opens a
// short streaming session for the buffered utterance.
type GoogleRecognizer struct {
	client *speech.Client
	logger *zap.Logger
}

var _ repositories.Recognizer = (*GoogleRecognizer)(nil)

// NewGoogleRecognizer connects the shared speech client. Credentials come
// from the usual GOOGLE_APPLICATION_CREDENTIALS environment.
func NewGoogleRecognizer(ctx context.Context, logger *zap.Logger) (*GoogleRecognizer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleRecognizer{client: client, logger: logger}, nil
}

// Close releases the underlying client.
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// Recognize transcribes one utterance worth of PCM audio.
func (g *GoogleRecognizer) Recognize(ctx context.Context, pcm []byte, config repositories.AudioConfig) (repositories.Recognition, error) {
	if len(pcm) == 0 {
		return repositories.Recognition{}, nil
	}

	stream, err := g.client.StreamingRecognize(ctx)
	if err != nil {
		return repositories.Recognition{}, fmt.Errorf("failed to open recognize stream: %w", err)
	}

	encoding, err := audioEncoding(config.Encoding)
	if err != nil {
		stream.CloseSend()
		return repositories.Recognition{}, err
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        encoding,
					SampleRateHertz: int32(config.SampleRate),
					LanguageCode:    config.Language,
				},
				InterimResults:  false,
				SingleUtterance: true,
			},
		},
	}); err != nil {
		stream.CloseSend()
		return repositories.Recognition{}, fmt.Errorf("failed to send streaming config: %w", err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	}); err != nil {
		stream.CloseSend()
		return repositories.Recognition{}, fmt.Errorf("failed to send audio data: %w", err)
	}

	if err := stream.CloseSend(); err != nil {
		return repositories.Recognition{}, fmt.Errorf("failed to close send stream: %w", err)
	}

	var best repositories.Recognition
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return repositories.Recognition{}, fmt.Errorf("failed to receive response: %w", err)
		}
		for _, result := range resp.Results {
			if result.IsFinal && len(result.Alternatives) > 0 {
				alt := result.Alternatives[0]
				best = repositories.Recognition{
					Text:       alt.Transcript,
					Confidence: float64(alt.Confidence),
				}
			}
		}
	}

	g.logger.Debug("recognized utterance",
		zap.Int("bytes", len(pcm)),
		zap.Float64("confidence", best.Confidence))
	return best, nil
}

// audioEncoding converts a config string to the Speech API enum.
func audioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch encoding {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
