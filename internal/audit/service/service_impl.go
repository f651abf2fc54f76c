package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/garagedesk/internal/audit/domain"
	"github.com/smallbiznis/garagedesk/internal/audit/masking"
	"github.com/smallbiznis/garagedesk/internal/authorization"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/smallbiznis/garagedesk/internal/identity"
	obscontext "github.com/smallbiznis/garagedesk/internal/observability/context"
	"github.com/smallbiznis/garagedesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// sensitiveKeys are masked before metadata is persisted.
var sensitiveKeys = []string{"session_id", "provider_session_id"}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func New(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, in auditdomain.Entry) error {
	action := strings.TrimSpace(in.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(in.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID := resolveActor(ctx, in)
	ipAddress, userAgent := obscontext.ClientFromContext(ctx)

	payload := map[string]any{}
	for key, value := range masking.MaskKeys(in.Metadata, sensitiveKeys...) {
		if key == "" {
			continue
		}
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    normalize(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   normalize(in.TargetID),
		Metadata:   datatypes.JSONMap(payload),
		IPAddress:  normalize(ipAddress),
		UserAgent:  normalize(userAgent),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Append(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, principal identity.Principal, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if err := authorization.AuthorizeAdmin(principal); err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	page := req.Pagination.Normalize()
	var before snowflake.ID
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		before = id
	}

	items, err := s.repo.Find(ctx, s.db, auditdomain.Query{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		Before:     before,
		Limit:      page.PageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.Paginate(items, page.PageSize, func(item *auditdomain.AuditLog) string {
		return item.ID.String()
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}

func resolveActor(ctx context.Context, in auditdomain.Entry) (string, string) {
	if in.ActorType != "" {
		return string(in.ActorType), in.Actor.ID
	}

	switch in.Actor.Role {
	case identity.RoleAdmin:
		return string(auditdomain.ActorTypeAdmin), in.Actor.ID
	case identity.RoleCustomer:
		return string(auditdomain.ActorTypeCustomer), in.Actor.ID
	case identity.RoleAnonymous:
		if ctxType, ctxID := obscontext.ActorFromContext(ctx); ctxType != "" {
			return ctxType, ctxID
		}
	}
	return string(auditdomain.ActorTypeSystem), ""
}

func normalize(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
