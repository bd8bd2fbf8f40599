package jobs

import (
	"github.com/gorbenco03/curatire-backend/common/model"
	"github.com/gorbenco03/curatire-backend/internal/jobs/common"
	"github.com/gorbenco03/curatire-backend/internal/jobs/handlers/notify"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionNotifyReady: notify.NewNotifyHandler,
}
