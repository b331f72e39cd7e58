package app

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"

	"chatmypdf/internal/model"
)

const (
	TierMini     = "mini"
	TierStandard = "standard"
	TierPro      = "pro"
)

type CreditPack struct {
	Tier     string `json:"tier"`
	Credits  int    `json:"credits"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Link     string `json:"link"`
}

// DefaultCreditPacks returns the three purchasable tiers with their links.
func DefaultCreditPacks(miniLink, standardLink, proLink string) []CreditPack {
	return []CreditPack{
		{Tier: TierMini, Credits: 100, Price: 29, Currency: "INR", Link: miniLink},
		{Tier: TierStandard, Credits: 500, Price: 99, Currency: "INR", Link: standardLink},
		{Tier: TierPro, Credits: 1500, Price: 199, Currency: "INR", Link: proLink},
	}
}

// CheckoutGateway turns a pending order into a URL the user is sent to.
type CheckoutGateway interface {
	CreateCheckout(ctx context.Context, order *model.CreditOrder, pack CreditPack, email string) (string, error)
}

type OrderStore interface {
	Create(ctx context.Context, order *model.CreditOrder) error
	GetByID(ctx context.Context, id string) (*model.CreditOrder, error)
	SetRedirectURL(ctx context.Context, id, url string) error
	Transition(ctx context.Context, id, from, to string) (bool, error)
}

// StaticLinkGateway sends the user to the tier's fixed payment link with
// the order id attached.
type StaticLinkGateway struct{}

func (StaticLinkGateway) CreateCheckout(_ context.Context, order *model.CreditOrder, pack CreditPack, _ string) (string, error) {
	if pack.Link == "" {
		return "", fmt.Errorf("no payment link configured for tier %s", pack.Tier)
	}
	u, err := url.Parse(pack.Link)
	if err != nil {
		return "", fmt.Errorf("parse payment link failed: %w", err)
	}
	q := u.Query()
	q.Set("order_id", order.ID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// MidtransGateway creates a Snap transaction per order.
type MidtransGateway struct {
	client    snap.Client
	finishURL string
}

func NewMidtransGateway(serverKey string, production bool, finishURL string) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g := &MidtransGateway{finishURL: finishURL}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) CreateCheckout(_ context.Context, order *model.CreditOrder, pack CreditPack, email string) (string, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.ID,
			GrossAmt: order.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    pack.Tier,
				Price: pack.Price,
				Qty:   1,
				Name:  fmt.Sprintf("%d credits", pack.Credits),
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}
	if g.finishURL != "" {
		req.Callbacks = &snap.Callbacks{Finish: g.finishURL}
	}

	resp, midErr := g.client.CreateTransaction(req)
	if midErr != nil {
		return "", fmt.Errorf("midtrans error: %s", midErr.GetMessage())
	}
	return resp.RedirectURL, nil
}

type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentService sells credit packs. Credits are only applied once the
// payment provider reports the order as paid.
type PaymentService struct {
	orders     OrderStore
	gateway    CheckoutGateway
	backend    IdentityBackend
	workspaces *WorkspaceManager
	serverKey  string
	packs      []CreditPack
	ids        IDGenerator
	logger     *zap.Logger
}

type PaymentOptions struct {
	Orders     OrderStore
	Gateway    CheckoutGateway
	Backend    IdentityBackend
	Workspaces *WorkspaceManager
	ServerKey  string
	Packs      []CreditPack
	IDs        IDGenerator
	Logger     *zap.Logger
}

func NewPaymentService(opts PaymentOptions) *PaymentService {
	if opts.Gateway == nil {
		opts.Gateway = StaticLinkGateway{}
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &PaymentService{
		orders:     opts.Orders,
		gateway:    opts.Gateway,
		backend:    opts.Backend,
		workspaces: opts.Workspaces,
		serverKey:  opts.ServerKey,
		packs:      opts.Packs,
		ids:        opts.IDs,
		logger:     opts.Logger,
	}
}

func (s *PaymentService) Packs() []CreditPack {
	out := make([]CreditPack, len(s.packs))
	copy(out, s.packs)
	return out
}

func (s *PaymentService) pack(tier string) (CreditPack, bool) {
	for _, p := range s.packs {
		if p.Tier == tier {
			return p, true
		}
	}
	return CreditPack{}, false
}

// Checkout records a pending order and returns where to pay for it.
func (s *PaymentService) Checkout(ctx context.Context, ws *Workspace, tier string) (*CheckoutResult, error) {
	user := ws.Identity.Current()
	if user == nil {
		return nil, ErrUnauthenticated
	}
	pack, ok := s.pack(strings.ToLower(strings.TrimSpace(tier)))
	if !ok {
		return nil, ErrUnknownTier
	}

	order := &model.CreditOrder{
		ID:      "order-" + s.ids.New(),
		UserID:  user.ID,
		Tier:    pack.Tier,
		Credits: pack.Credits,
		Amount:  pack.Price,
		Status:  model.OrderStatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: save order: %v", ErrBackendFailure, err)
	}

	redirectURL, err := s.gateway.CreateCheckout(ctx, order, pack, user.Email)
	if err != nil {
		if _, tErr := s.orders.Transition(ctx, order.ID, model.OrderStatusPending, model.OrderStatusFailed); tErr != nil {
			s.logger.Warn("mark order failed failed", zap.String("order_id", order.ID), zap.Error(tErr))
		}
		return nil, fmt.Errorf("%w: create checkout: %v", ErrBackendFailure, err)
	}
	if err := s.orders.SetRedirectURL(ctx, order.ID, redirectURL); err != nil {
		s.logger.Warn("save redirect url failed", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("checkout created",
		zap.String("order_id", order.ID),
		zap.String("user_id", user.ID),
		zap.String("tier", pack.Tier),
	)
	return &CheckoutResult{OrderID: order.ID, RedirectURL: redirectURL}, nil
}

// HandleNotification applies a payment provider status update. Settled
// orders credit the buyer exactly once; replays are no-ops.
func (s *PaymentService) HandleNotification(ctx context.Context, n PaymentNotification) error {
	if !s.validSignature(n) {
		return ErrInvalidSignature
	}

	order, err := s.orders.GetByID(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("%w: load order: %v", ErrBackendFailure, err)
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if gross, err := strconv.ParseFloat(n.GrossAmount, 64); err != nil || int64(math.Round(gross)) != order.Amount {
		return fmt.Errorf("%w: gross amount %q does not match order", ErrInvalidInput, n.GrossAmount)
	}

	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus != "" && n.FraudStatus != "accept" {
			return nil
		}
		return s.settle(ctx, order)
	case "settlement":
		return s.settle(ctx, order)
	case "deny", "cancel", "expire":
		if _, err := s.orders.Transition(ctx, order.ID, model.OrderStatusPending, model.OrderStatusFailed); err != nil {
			return fmt.Errorf("%w: fail order: %v", ErrBackendFailure, err)
		}
		return nil
	default:
		return nil
	}
}

func (s *PaymentService) settle(ctx context.Context, order *model.CreditOrder) error {
	won, err := s.orders.Transition(ctx, order.ID, model.OrderStatusPending, model.OrderStatusPaid)
	if err != nil {
		return fmt.Errorf("%w: settle order: %v", ErrBackendFailure, err)
	}
	if !won {
		return nil
	}

	if err := s.backend.AddCredits(ctx, order.UserID, order.Credits); err != nil {
		// The order is already paid; a replay will not retry this.
		s.logger.Error("credit purchase failed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
		return err
	}
	if s.workspaces != nil {
		for _, ws := range s.workspaces.ForUser(order.UserID) {
			ws.Identity.Grant(ctx, order.Credits)
		}
	}

	s.logger.Info("credits purchased",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int("credits", order.Credits),
	)
	return nil
}

func (s *PaymentService) validSignature(n PaymentNotification) bool {
	if s.serverKey == "" || n.SignatureKey == "" {
		return false
	}
	expected := NotificationSignature(n.OrderID, n.StatusCode, n.GrossAmount, s.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1
}

// NotificationSignature computes the signature a provider notification for
// the given fields must carry.
func NotificationSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
