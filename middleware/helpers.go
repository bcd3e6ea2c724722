package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/Pandnak/dancers-matcher/models"
	"github.com/Pandnak/dancers-matcher/services"
	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims, которые выдает логин.
const (
	jwtClaimUserID   = "user_id"
	jwtClaimRole     = "role"
	jwtClaimDancerID = "dancer_id"
)

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, errors.New("user claims not found in context or invalid type")
	}
	return claims, nil
}

func GetUserIDFromContext(ctx context.Context) (int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return 0, err
	}

	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	userIDFloat, ok := userIDClaim.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number, got %T", jwtClaimUserID, userIDClaim)
	}
	userID := int(userIDFloat)
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleDancer:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

// GetDancerIDFromContext возвращает привязанную анкету танцора или nil,
// если claim отсутствует (например, у администратора без анкеты).
func GetDancerIDFromContext(ctx context.Context) (*int, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return nil, err
	}

	dancerIDClaim, ok := claims[jwtClaimDancerID]
	if !ok || dancerIDClaim == nil {
		return nil, nil
	}
	dancerIDFloat, ok := dancerIDClaim.(float64)
	if !ok {
		return nil, fmt.Errorf("invalid type for '%s' claim: expected number, got %T", jwtClaimDancerID, dancerIDClaim)
	}
	dancerID := int(dancerIDFloat)
	return &dancerID, nil
}

// CallerFromContext собирает личность вызывающего из claims токена.
func CallerFromContext(ctx context.Context) (services.Caller, error) {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return services.Caller{}, err
	}
	role, err := GetUserRoleFromContext(ctx)
	if err != nil {
		return services.Caller{}, err
	}
	dancerID, err := GetDancerIDFromContext(ctx)
	if err != nil {
		return services.Caller{}, err
	}
	return services.Caller{UserID: userID, Role: role, DancerID: dancerID}, nil
}
