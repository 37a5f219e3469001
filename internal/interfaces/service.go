package interfaces

// Service is implemented by every transport exposing the daemon's
// application services.
type Service interface {
	Start() error
	Stop()
}
