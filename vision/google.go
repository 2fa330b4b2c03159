package vision

import (
	"context"
	"fmt"
	"log"

	gcvision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"pixvault/config"
)

// GoogleAnnotator 基于 Google Cloud Vision 的 Annotator 实现
type GoogleAnnotator struct {
	client    *gcvision.ImageAnnotatorClient
	maxLabels int
}

func NewGoogleAnnotator(ctx context.Context, cfg *config.VisionConfig) (*GoogleAnnotator, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcvision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("初始化 Vision 客户端失败: %w", err)
	}

	log.Println("Vision 客户端初始化成功")
	return &GoogleAnnotator{client: client, maxLabels: cfg.MaxLabels}, nil
}

func (a *GoogleAnnotator) Close() error {
	return a.client.Close()
}

func (a *GoogleAnnotator) Annotate(ctx context.Context, data []byte) (Analysis, error) {
	resp, err := a.client.AnnotateImage(ctx, &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: data},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(a.maxLabels)},
			{Type: visionpb.Feature_IMAGE_PROPERTIES},
		},
	})
	if err != nil {
		return Analysis{}, err
	}
	if respErr := resp.GetError(); respErr != nil {
		return Analysis{}, fmt.Errorf("vision annotate: %s", respErr.GetMessage())
	}

	labels := make([]string, 0, len(resp.GetLabelAnnotations()))
	for _, annotation := range resp.GetLabelAnnotations() {
		labels = append(labels, annotation.GetDescription())
	}
	tags := normalizeLabels(labels, a.maxLabels)

	var colors []string
	if dominant := resp.GetImagePropertiesAnnotation().GetDominantColors(); dominant != nil {
		for _, info := range dominant.GetColors() {
			c := info.GetColor()
			if c == nil {
				continue
			}
			colors = append(colors, rgbToHex(c.GetRed(), c.GetGreen(), c.GetBlue()))
			if len(colors) == dominantColorCount {
				break
			}
		}
	}

	return Analysis{
		Tags:        tags,
		Description: synthesizeDescription(tags),
		Colors:      padColors(colors),
	}, nil
}
