package httpinterface

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/interfaces"
	"golang.org/x/net/netutil"
)

const shutdownTimeout = 5 * time.Second

type ServiceOpts struct {
	Address           string
	AdminToken        string
	AdminAccount      string
	FeeTokenPrecision uint
	// MaxConnections caps the simultaneous connections, 0 means unlimited.
	MaxConnections    int

	SwapSvc    application.SwapService
	FeeSvc     application.FeeService
	// WebhookSvc is optional, webhook endpoints are not served without it.
	WebhookSvc application.WebhookService
}

func (o ServiceOpts) validate() error {
	if len(o.Address) <= 0 {
		return fmt.Errorf("missing listening address")
	}
	if len(o.AdminToken) <= 0 {
		return fmt.Errorf("missing admin token")
	}
	if len(o.AdminAccount) <= 0 {
		return fmt.Errorf("missing admin account")
	}
	if o.SwapSvc == nil {
		return fmt.Errorf("swap app service must not be null")
	}
	if o.FeeSvc == nil {
		return fmt.Errorf("fee app service must not be null")
	}
	return nil
}

type service struct {
	opts   ServiceOpts
	router *gin.Engine
	server *http.Server
}

// NewService returns the REST interface of the daemon.
func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	return &service{opts: opts, router: newRouter(opts)}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	if s.opts.MaxConnections > 0 {
		lis = netutil.LimitListener(lis, s.opts.MaxConnections)
	}

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(lis); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http interface stopped")
		}
	}()

	log.Infof("http interface listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	if s.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("failed to gracefully stop http interface")
	}
	log.Debug("disabled http interface")
}

func newRouter(opts ServiceOpts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestID(), logger(), gin.Recovery())

	h := &handler{
		swapSvc:      opts.SwapSvc,
		feeSvc:       opts.FeeSvc,
		webhookSvc:   opts.WebhookSvc,
		adminAccount: opts.AdminAccount,
		precision:    opts.FeeTokenPrecision,
	}

	v1 := r.Group("/v1")
	v1.GET("/fee", h.getFee)
	v1.GET("/custody", h.listCustody)
	v1.POST("/swaps", h.proposeSwap)
	v1.GET("/swaps", h.listSwaps)
	v1.GET("/swaps/:id", h.getSwap)
	v1.GET("/swaps/:id/history", h.getSwapHistory)
	v1.POST("/swaps/:id/accept", h.acceptSwap)
	v1.POST("/swaps/:id/settle", h.settleSwap)
	v1.POST("/swaps/:id/cancel", h.cancelSwap)

	admin := v1.Group("", adminAuth(opts.AdminToken))
	admin.PUT("/fee", h.setFeeRate)
	admin.PUT("/fee/collector", h.setFeeCollector)
	admin.POST("/swaps/sweep", h.sweepExpired)
	if opts.WebhookSvc != nil {
		admin.POST("/webhooks", h.addWebhook)
		admin.GET("/webhooks", h.listWebhooks)
		admin.DELETE("/webhooks/:id", h.removeWebhook)
	}

	return r
}
