package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tenant-hub/tenant-hub-server/internal/storage"
)

// DefaultUseCase is assigned when no use-case mapping prefix matches
// the subscription's plan code
const DefaultUseCase = "General"

// resolveUseCase picks the use case for a plan code: the first
// mapping in insertion order whose non-empty prefix starts the plan
// code wins, otherwise the default.
func resolveUseCase(ctx context.Context, store storage.Store, planCode string) (string, error) {
	if planCode == "" {
		return DefaultUseCase, nil
	}

	mappings, err := store.ListUseCaseMappings(ctx)
	if err != nil {
		return "", fmt.Errorf("list use case mappings: %w", err)
	}

	for _, mapping := range mappings {
		if mapping.PlanPrefix != "" && strings.HasPrefix(planCode, mapping.PlanPrefix) {
			return mapping.Name, nil
		}
	}

	return DefaultUseCase, nil
}

// resolveProfileID picks the device profile for a subscription: the
// first plan-profile mapping in insertion order whose keyword appears
// in the plan name or plan code, and whose profile name resolves to a
// known device profile, wins. With no match the default profile is
// used; with no default configured resolution fails with a
// ConfigurationError.
func resolveProfileID(ctx context.Context, store storage.Store, planName, planCode string) (string, error) {
	mappings, err := store.ListPlanProfileMappings(ctx)
	if err != nil {
		return "", fmt.Errorf("list plan profile mappings: %w", err)
	}

	for _, mapping := range mappings {
		if mapping.PlanKeyword == "" {
			continue
		}

		matched := (planName != "" && strings.Contains(planName, mapping.PlanKeyword)) ||
			(planCode != "" && strings.Contains(planCode, mapping.PlanKeyword))
		if !matched {
			continue
		}

		profile, err := store.GetDeviceProfileByName(ctx, mapping.ProfileName)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("get device profile %s: %w", mapping.ProfileName, err)
		}

		return profile.ProfileID, nil
	}

	profile, err := store.GetDefaultDeviceProfile(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", &ConfigurationError{Reason: "No matching profile found and no default profile configured."}
		}
		return "", fmt.Errorf("get default device profile: %w", err)
	}

	return profile.ProfileID, nil
}
