package services

import (
	"pixvault/queue"
	"pixvault/repositories"
	"pixvault/storage"
	"pixvault/vision"
)

type Container struct {
	Auth     AuthService
	Upload   UploadService
	Image    ImageService
	Search   SearchService
	Analysis AnalysisService
}

func NewContainer(repos repositories.Container, store storage.ObjectStorage, annotator vision.Annotator, jobs queue.Enqueuer) *Container {
	return &Container{
		Auth:     NewAuthService(repos.Users),
		Upload:   NewUploadService(repos.Images, repos.Metadata, store, jobs),
		Image:    NewImageService(repos.TxManager, repos.Images, repos.Metadata, store),
		Search:   NewSearchService(repos.Images, store),
		Analysis: NewAnalysisService(repos.Metadata, store, annotator),
	}
}
