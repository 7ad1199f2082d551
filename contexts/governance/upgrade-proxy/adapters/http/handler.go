package httpadapter

import (
	"context"
	"log/slog"

	"ballotproxy/contexts/governance/upgrade-proxy/application"
	httptransport "ballotproxy/contexts/governance/upgrade-proxy/transport/http"
	"ballotproxy/internal/shared/dispatch"
)

type Handler struct {
	Proxy  *application.Proxy
	Logger *slog.Logger
}

// CallHandler godoc
// @Summary Submit a raw call
// @Description Proxy-level methods are served by the proxy; every other method is forwarded to the current implementation with args untouched.
// @Tags upgrade-proxy
// @Accept json
// @Produce json
// @Param X-Caller-Id header string true "Caller identity"
// @Param request body httptransport.CallRequest true "Call"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proxy/calls [post]
func (h Handler) CallHandler(
	ctx context.Context,
	caller string,
	req httptransport.CallRequest,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Proxy.Dispatch(ctx, dispatch.Call{
		Caller: caller,
		Method: req.Method,
		Args:   req.Args,
	})
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// OwnerHandler godoc
// @Summary Get the proxy owner
// @Tags upgrade-proxy
// @Produce json
// @Success 200 {object} httptransport.OwnerResponse
// @Router /v1/proxy/owner [get]
func (h Handler) OwnerHandler(ctx context.Context) (httptransport.OwnerResponse, error) {
	owner, err := h.Proxy.Owner(ctx)
	if err != nil {
		return httptransport.OwnerResponse{}, err
	}
	return httptransport.OwnerResponse{Owner: owner}, nil
}

// TransferOwnershipHandler godoc
// @Summary Transfer proxy ownership
// @Tags upgrade-proxy
// @Accept json
// @Produce json
// @Param X-Caller-Id header string true "Caller identity"
// @Param request body httptransport.TransferOwnershipRequest true "New owner"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/proxy/owner/transfer [post]
func (h Handler) TransferOwnershipHandler(
	ctx context.Context,
	caller string,
	req httptransport.TransferOwnershipRequest,
) (httptransport.ReceiptResponse, error) {
	receipt, err := h.Proxy.TransferOwnership(ctx, caller, req.NewOwner)
	if err != nil {
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

// ImplementationHandler godoc
// @Summary Get the current implementation address
// @Tags upgrade-proxy
// @Produce json
// @Success 200 {object} httptransport.ImplementationResponse
// @Router /v1/proxy/implementation [get]
func (h Handler) ImplementationHandler(ctx context.Context) (httptransport.ImplementationResponse, error) {
	address, err := h.Proxy.Implementation(ctx)
	if err != nil {
		return httptransport.ImplementationResponse{}, err
	}
	return httptransport.ImplementationResponse{Implementation: address}, nil
}

// LayoutVersionHandler godoc
// @Summary Get the storage layout version
// @Tags upgrade-proxy
// @Produce json
// @Success 200 {object} httptransport.LayoutVersionResponse
// @Router /v1/proxy/layout-version [get]
func (h Handler) LayoutVersionHandler(ctx context.Context) (httptransport.LayoutVersionResponse, error) {
	version, err := h.Proxy.LayoutVersion(ctx)
	if err != nil {
		return httptransport.LayoutVersionResponse{}, err
	}
	return httptransport.LayoutVersionResponse{LayoutVersion: version}, nil
}

// SetImplementationHandler godoc
// @Summary Upgrade the implementation
// @Description Owner only. The new implementation must share the deployed storage layout.
// @Tags upgrade-proxy
// @Accept json
// @Produce json
// @Param X-Caller-Id header string true "Caller identity"
// @Param request body httptransport.SetImplementationRequest true "Implementation address"
// @Success 200 {object} httptransport.ReceiptResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Router /v1/proxy/implementation [put]
func (h Handler) SetImplementationHandler(
	ctx context.Context,
	caller string,
	req httptransport.SetImplementationRequest,
) (httptransport.ReceiptResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	receipt, err := h.Proxy.SetImplementation(ctx, caller, req.Address)
	if err != nil {
		logger.Warn("set implementation request rejected",
			"event", "http_set_implementation_rejected",
			"module", "governance/upgrade-proxy",
			"layer", "transport",
			"caller", caller,
			"address", req.Address,
			"error", err.Error(),
		)
		return httptransport.ReceiptResponse{}, err
	}
	return mapReceipt(receipt), nil
}

func mapReceipt(receipt dispatch.Receipt) httptransport.ReceiptResponse {
	return httptransport.ReceiptResponse{
		Implementation: receipt.Implementation,
		Return:         receipt.Return,
		Events:         receipt.Events,
	}
}
