package lecture

import (
	"context"

	"github.com/m-mizutani/coursedash/pkg/model"
	"github.com/m-mizutani/coursedash/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Purge deletes every stored chunk of the user. Archived uploads in Cloud Storage are kept.
func (u *UseCase) Purge(ctx context.Context, userID model.UserID) error {
	if userID == "" {
		return goerr.Wrap(model.ErrInvalidInput, "user ID is empty")
	}

	if err := u.repo.DeleteCollection(ctx, userID); err != nil {
		return goerr.Wrap(err, "failed to delete collection", goerr.V("user_id", userID))
	}

	logging.From(ctx).Info("purged user lectures", "user_id", userID)
	return nil
}
