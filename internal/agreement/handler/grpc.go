package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"handshake/backend/internal/apperror"
	"handshake/backend/internal/server/interceptors"
	signaturedomain "handshake/backend/internal/signature/domain"
)

// ReceiptServiceName is the gRPC service name. Messages are google.protobuf.Struct so external verifiers
// need no generated stubs.
const ReceiptServiceName = "handshake.v1.ReceiptService"

// Full method names, for interceptor allow-lists.
const (
	MethodVerifyReceipt  = "/" + ReceiptServiceName + "/VerifyReceipt"
	MethodGetReceipt     = "/" + ReceiptServiceName + "/GetReceipt"
	MethodListAgreements = "/" + ReceiptServiceName + "/ListAgreements"
)

// PublicMethods do not require a creator token.
var PublicMethods = map[string]bool{
	MethodVerifyReceipt: true,
	MethodGetReceipt:    true,
}

// ReceiptServiceServer is the server API for handshake.v1.ReceiptService.
type ReceiptServiceServer interface {
	VerifyReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReceipt(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAgreements(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// GRPCServer implements ReceiptServiceServer over the lifecycle service.
type GRPCServer struct {
	svc Service
}

// NewGRPCServer returns a GRPCServer backed by svc.
func NewGRPCServer(svc Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

// RegisterReceiptServiceServer registers srv with s.
func RegisterReceiptServiceServer(s grpc.ServiceRegistrar, srv ReceiptServiceServer) {
	s.RegisterService(&receiptServiceDesc, srv)
}

// VerifyReceipt takes {agreement_id, hmac_signature} and returns {valid, receipt}.
func (s *GRPCServer) VerifyReceipt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.svc.VerifyReceipt(ctx, stringField(req, "agreement_id"), stringField(req, "hmac_signature"))
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"valid":   res.Valid,
		"receipt": receiptMap(res.Event),
	})
}

// GetReceipt takes {agreement_id} and returns the stored receipt.
func (s *GRPCServer) GetReceipt(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rc, err := s.svc.GetReceipt(ctx, stringField(req, "agreement_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	m := receiptMap(rc.Event)
	m["title"] = rc.Title
	return structpb.NewStruct(m)
}

// ListAgreements returns the authenticated creator's agreements as {agreements: [...]}.
func (s *GRPCServer) ListAgreements(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	creator, ok := interceptors.GetCreator(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
	}
	list, err := s.svc.ListByCreator(ctx, creator)
	if err != nil {
		return nil, toStatus(err)
	}
	items := make([]any, 0, len(list))
	for _, a := range list {
		items = append(items, map[string]any{
			"id":          a.ID,
			"title":       a.Title,
			"template_id": a.TemplateID,
			"status":      string(a.Status),
			"expires_at":  a.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return structpb.NewStruct(map[string]any{"agreements": items})
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func receiptMap(e *signaturedomain.Event) map[string]any {
	if e == nil {
		return map[string]any{}
	}
	r := toReceiptResponse(e)
	return map[string]any{
		"id":                r.ID,
		"agreement_id":      r.AgreementID,
		"contract_text":     r.ContractText,
		"creator_email":     r.CreatorEmail,
		"signer_email":      r.SignerEmail,
		"signer_legal_name": r.SignerLegalName,
		"signed_at":         r.SignedAt,
		"template_id":       r.TemplateID,
		"template_version":  r.TemplateVersion,
		"canonical_payload": r.CanonicalPayload,
		"hmac_signature":    r.HMACSignature,
	}
}

// toStatus maps the error taxonomy to gRPC codes.
func toStatus(err error) error {
	var e *apperror.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal error")
	}
	switch e.Kind {
	case apperror.KindValidation:
		return status.Error(codes.InvalidArgument, e.Message)
	case apperror.KindStateConflict, apperror.KindExpired:
		return status.Error(codes.FailedPrecondition, e.Message)
	case apperror.KindRateLimit:
		return status.Error(codes.ResourceExhausted, e.Message)
	case apperror.KindNotFound:
		return status.Error(codes.NotFound, e.Message)
	case apperror.KindIntegrity:
		return status.Error(codes.DataLoss, e.Message)
	default:
		return status.Error(codes.Unavailable, e.Message)
	}
}

func unaryHandler(method string, call func(ReceiptServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReceiptServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ReceiptServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

var receiptServiceDesc = grpc.ServiceDesc{
	ServiceName: ReceiptServiceName,
	HandlerType: (*ReceiptServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifyReceipt", Handler: unaryHandler(MethodVerifyReceipt, ReceiptServiceServer.VerifyReceipt)},
		{MethodName: "GetReceipt", Handler: unaryHandler(MethodGetReceipt, ReceiptServiceServer.GetReceipt)},
		{MethodName: "ListAgreements", Handler: unaryHandler(MethodListAgreements, ReceiptServiceServer.ListAgreements)},
	},
	Streams: []grpc.StreamDesc{},
}
