package ledger

import (
	"context"

	"github.com/robfig/cron"

	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/rabbitmq"
	"github.com/qZheng/CavityProof/pkg/utilities/timeutil"
)

const streakWorkerName = "StreakWatchCronWorker"

// StreakWatchWorker scans progress records once per hour and reports
// streaks that lapsed: a user who last claimed before yesterday can no
// longer extend their streak, only restart it.
type StreakWatchWorker struct {
	store     Store
	publisher rabbitmq.IRabbitmqPublisher
	cron      *cron.Cron
}

func NewStreakWatchWorker(store Store, publisher rabbitmq.IRabbitmqPublisher) rabbitmq.WorkerService {
	return &StreakWatchWorker{
		store:     store,
		publisher: publisher,
		cron:      cron.New(),
	}
}

func (sw *StreakWatchWorker) GetServiceName() string {
	return streakWorkerName
}

func (sw *StreakWatchWorker) StartService() {
	err := sw.cron.AddFunc("@every 1h", func() { sw.scanForLapsedStreaks() })
	if err != nil {
		logger.Default().Errorf(err, "Could not add function to %s", streakWorkerName)
	}

	sw.cron.Start()
}

func (sw *StreakWatchWorker) scanForLapsedStreaks() {
	streakLogger := logger.Default()

	all, err := sw.store.ListProgress(context.Background())
	if err != nil {
		streakLogger.Error(err, "Could not read progress records")
		return
	}

	today := timeutil.NowUTC().DayNumber()
	for _, p := range all {
		if p.Streak == 0 || p.LastDayClaimed >= today-1 {
			continue
		}

		streakLogger.Infof("Streak lapsed for %s: last claimed day %d, today is %d", p.Owner, p.LastDayClaimed, today)
		if sw.publisher == nil {
			continue
		}
		event := StreakLapsedEvent{
			User:           p.Owner.String(),
			Streak:         p.Streak,
			LastDayClaimed: p.LastDayClaimed,
			CurrentDay:     today,
		}
		if err := sw.publisher.Publish(event); err != nil {
			streakLogger.Error(err, "Can't publish streak lapse event")
		}
	}
}
