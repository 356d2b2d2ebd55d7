// Package rpc exposes receipts over Connect.
//
// Messages are plain Go structs carried by a JSON codec, so the service
// needs no generated stubs. Any Connect client that speaks JSON can call it.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/payfees/internal/calculator"
	"github.com/mmynk/payfees/internal/middleware"
	"github.com/mmynk/payfees/internal/models"
	"github.com/mmynk/payfees/internal/payments"
	"github.com/mmynk/payfees/internal/validation"
)

// ReceiptServiceName is the fully-qualified name of the receipt service.
const ReceiptServiceName = "payfees.v1.ReceiptService"

// Procedure paths.
const (
	GetReceiptProcedure   = "/" + ReceiptServiceName + "/GetReceipt"
	ListReceiptsProcedure = "/" + ReceiptServiceName + "/ListReceipts"
)

// JSONCodec marshals plain structs with encoding/json. It registers under
// the "json" name, replacing Connect's protobuf JSON codec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }
func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type GetReceiptRequest struct {
	PaymentID string `json:"paymentId"`
}

func (r *GetReceiptRequest) GetPaymentID() string { return r.PaymentID }

type GetReceiptResponse struct {
	Receipt        models.PaymentRecord `json:"receipt"`
	FormattedTotal string               `json:"formattedTotal"`

	// Shares breaks the payment down per student.
	Shares []calculator.StudentShare `json:"shares,omitempty"`
}

type ListReceiptsRequest struct {
	Phone string `json:"phone"`
}

type ListReceiptsResponse struct {
	Receipts []models.PaymentRecord `json:"receipts"`
	Count    int                    `json:"count"`
}

// ReceiptService serves receipts to holders of a valid receipt token.
type ReceiptService struct {
	payments       *payments.Service
	currencySymbol string
}

// NewReceiptService creates a ReceiptService backed by payments.
func NewReceiptService(p *payments.Service, currencySymbol string) *ReceiptService {
	return &ReceiptService{payments: p, currencySymbol: currencySymbol}
}

// GetReceipt returns the payment the caller's token was issued for.
func (s *ReceiptService) GetReceipt(ctx context.Context, req *connect.Request[GetReceiptRequest]) (*connect.Response[GetReceiptResponse], error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("receipt token required"))
	}
	if req.Msg.PaymentID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("paymentId is required"))
	}
	if req.Msg.PaymentID != claims.PaymentID {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("token does not cover payment %s", req.Msg.PaymentID))
	}

	rec, err := s.payments.Get(ctx, req.Msg.PaymentID)
	if errors.Is(err, payments.ErrNotFound) {
		return nil, connect.NewError(connect.CodeNotFound, err)
	}
	if err != nil {
		slog.Error("GetReceipt failed", "payment_id", req.Msg.PaymentID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	shares, err := calculator.SplitByStudent(rec.Services, rec.ServiceFee)
	if err != nil {
		slog.Debug("No per-student breakdown", "payment_id", rec.ID, "error", err)
	}

	return connect.NewResponse(&GetReceiptResponse{
		Receipt:        *rec,
		FormattedTotal: calculator.FormatAmount(rec.FinalAmount, s.currencySymbol),
		Shares:         shares,
	}), nil
}

// ListReceipts returns every payment made from the token holder's phone.
func (s *ReceiptService) ListReceipts(ctx context.Context, req *connect.Request[ListReceiptsRequest]) (*connect.Response[ListReceiptsResponse], error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("receipt token required"))
	}
	phone := validation.NormalizePhone(req.Msg.Phone)
	if phone == "" {
		phone = claims.Phone
	}
	if phone != claims.Phone {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("token does not cover phone %s", req.Msg.Phone))
	}

	recs, err := s.payments.ListByPhone(ctx, phone)
	if err != nil {
		slog.Error("ListReceipts failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ListReceiptsResponse{Receipts: recs, Count: len(recs)}), nil
}

// NewReceiptServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewReceiptServiceHandler(svc *ReceiptService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetReceiptProcedure, connect.NewUnaryHandler(GetReceiptProcedure, svc.GetReceipt, opts...))
	mux.Handle(ListReceiptsProcedure, connect.NewUnaryHandler(ListReceiptsProcedure, svc.ListReceipts, opts...))
	return "/" + ReceiptServiceName + "/", mux
}

// ReceiptClient calls ReceiptService.
type ReceiptClient struct {
	get  *connect.Client[GetReceiptRequest, GetReceiptResponse]
	list *connect.Client[ListReceiptsRequest, ListReceiptsResponse]
}

// NewReceiptClient creates a client for the service at baseURL.
func NewReceiptClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ReceiptClient {
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &ReceiptClient{
		get:  connect.NewClient[GetReceiptRequest, GetReceiptResponse](httpClient, baseURL+GetReceiptProcedure, opts...),
		list: connect.NewClient[ListReceiptsRequest, ListReceiptsResponse](httpClient, baseURL+ListReceiptsProcedure, opts...),
	}
}

// GetReceipt fetches one receipt using token.
func (c *ReceiptClient) GetReceipt(ctx context.Context, token, paymentID string) (*GetReceiptResponse, error) {
	req := connect.NewRequest(&GetReceiptRequest{PaymentID: paymentID})
	req.Header().Set("Authorization", "Bearer "+token)
	resp, err := c.get.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// ListReceipts fetches all receipts for the token's phone.
func (c *ReceiptClient) ListReceipts(ctx context.Context, token, phone string) (*ListReceiptsResponse, error) {
	req := connect.NewRequest(&ListReceiptsRequest{Phone: phone})
	req.Header().Set("Authorization", "Bearer "+token)
	resp, err := c.list.CallUnary(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
