package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/MarkoPoloResearchLab/acquisition_console/internal/model"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/storage"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/task"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/testutil"
)

const (
	testSchedulerInterval = 10 * time.Millisecond
	testSchedulerTimeout  = 2 * time.Second
)

func saveClientState(testingT *testing.T, repository *storage.ClientStateRepository, username string) model.ClientState {
	testingT.Helper()
	state, stateErr := model.NewClientState(model.ClientStateInput{Token: "token-" + username, Username: username})
	require.NoError(testingT, stateErr)
	saved, saveErr := repository.Save(context.Background(), state)
	require.NoError(testingT, saveErr)
	return saved
}

func TestSchedulerPurgesExpiredClientStatesOnTrigger(testingT *testing.T) {
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	shortLived := storage.NewClientStateRepository(database, time.Nanosecond)
	longLived := storage.NewClientStateRepository(database, time.Hour)
	expired := saveClientState(testingT, shortLived, "ana")
	live := saveClientState(testingT, longLived, "luis")

	core, observedLogs := observer.New(zap.InfoLevel)
	scheduler := task.NewScheduler(task.SchedulerConfig{
		Name:     "client_state_purge",
		Interval: time.Hour,
		Runner:   task.NewClientStatePurgeJob(longLived, zap.New(core)).Runner(),
	})
	scheduler.Start(context.Background())
	testingT.Cleanup(scheduler.Stop)
	scheduler.Trigger()

	require.Eventually(testingT, func() bool {
		return scheduler.Runs() >= 1
	}, testSchedulerTimeout, testSchedulerInterval)

	var remaining []model.ClientState
	require.NoError(testingT, database.Find(&remaining).Error)
	require.Len(testingT, remaining, 1)
	require.Equal(testingT, live.ID, remaining[0].ID)

	_, loadErr := longLived.Load(context.Background(), expired.ID)
	require.ErrorIs(testingT, loadErr, storage.ErrClientStateNotFound)

	purgedEntries := observedLogs.FilterMessage("client_state_purged").All()
	require.Len(testingT, purgedEntries, 1)
	require.Equal(testingT, int64(1), purgedEntries[0].ContextMap()["purged"])
}

func TestSchedulerRepeatsPurgeEveryInterval(testingT *testing.T) {
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	repository := storage.NewClientStateRepository(database, time.Nanosecond)
	scheduler := task.NewScheduler(task.SchedulerConfig{
		Interval: testSchedulerInterval,
		Runner:   task.NewClientStatePurgeJob(repository, nil).Runner(),
	})
	scheduler.Start(context.Background())
	testingT.Cleanup(scheduler.Stop)

	require.Eventually(testingT, func() bool {
		return scheduler.Runs() >= 1
	}, testSchedulerTimeout, testSchedulerInterval)
	saveClientState(testingT, repository, "marta")

	require.Eventually(testingT, func() bool {
		var count int64
		return database.Model(&model.ClientState{}).Count(&count).Error == nil && count == 0
	}, testSchedulerTimeout, testSchedulerInterval)
	require.GreaterOrEqual(testingT, scheduler.Runs(), int64(2))
}

func TestSchedulerKeepsRunningAfterPurgeFailure(testingT *testing.T) {
	database := testutil.OpenMigratedSQLiteDatabase(testingT)
	repository := storage.NewClientStateRepository(database, time.Nanosecond)
	sqlDatabase, sqlErr := database.DB()
	require.NoError(testingT, sqlErr)

	core, observedLogs := observer.New(zap.InfoLevel)
	scheduler := task.NewScheduler(task.SchedulerConfig{
		Interval: time.Hour,
		Runner:   task.NewClientStatePurgeJob(repository, zap.New(core)).Runner(),
	})
	scheduler.Start(context.Background())
	testingT.Cleanup(scheduler.Stop)

	require.NoError(testingT, sqlDatabase.Close())
	scheduler.Trigger()

	require.Eventually(testingT, func() bool {
		return observedLogs.FilterMessage("client_state_purge_failed").Len() == 1
	}, testSchedulerTimeout, testSchedulerInterval)
	require.True(testingT, scheduler.Running())
}

func TestSchedulerRecoversFromPanickingRun(testingT *testing.T) {
	core, observedLogs := observer.New(zap.InfoLevel)
	calls := make(chan struct{}, 2)
	scheduler := task.NewScheduler(task.SchedulerConfig{
		Name:     "flaky",
		Interval: time.Hour,
		Logger:   zap.New(core),
		Runner: func(context.Context) {
			calls <- struct{}{}
			panic(errors.New("purge exploded"))
		},
	})
	scheduler.Start(context.Background())
	testingT.Cleanup(scheduler.Stop)

	scheduler.Trigger()
	<-calls
	require.Eventually(testingT, func() bool { return scheduler.Runs() == 1 }, testSchedulerTimeout, testSchedulerInterval)
	scheduler.Trigger()
	<-calls
	require.Eventually(testingT, func() bool { return scheduler.Runs() == 2 }, testSchedulerTimeout, testSchedulerInterval)

	panics := observedLogs.FilterMessage("scheduler_run_panic").All()
	require.Len(testingT, panics, 2)
	require.Equal(testingT, "flaky", panics[0].ContextMap()["scheduler"])
}

func TestSchedulerLifecycle(testingT *testing.T) {
	var nilScheduler *task.Scheduler
	nilScheduler.Start(context.Background())
	nilScheduler.Trigger()
	nilScheduler.Stop()
	require.False(testingT, nilScheduler.Running())
	require.Zero(testingT, nilScheduler.Runs())

	withoutRunner := task.NewScheduler(task.SchedulerConfig{Interval: testSchedulerInterval})
	withoutRunner.Start(context.Background())
	require.False(testingT, withoutRunner.Running())

	scheduler := task.NewScheduler(task.SchedulerConfig{Runner: func(context.Context) {}})
	scheduler.Start(context.Background())
	scheduler.Start(context.Background())
	require.True(testingT, scheduler.Running())
	scheduler.Stop()
	require.False(testingT, scheduler.Running())
	scheduler.Stop()

	scheduler.Start(context.Background())
	require.True(testingT, scheduler.Running())
	scheduler.Stop()
}

func TestSchedulerStopsWithParentContext(testingT *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	scheduler := task.NewScheduler(task.SchedulerConfig{Interval: testSchedulerInterval, Runner: func(context.Context) {}})
	scheduler.Start(parent)
	cancel()

	stopped := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(testSchedulerTimeout):
		testingT.Fatal("scheduler did not stop after its parent context ended")
	}
}
