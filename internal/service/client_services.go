// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"github.com/MKhiriev/go-checkin/internal/adapter"
	"github.com/MKhiriev/go-checkin/internal/cache"
	"github.com/MKhiriev/go-checkin/internal/config"
	"github.com/MKhiriev/go-checkin/internal/logger"
	"github.com/MKhiriev/go-checkin/internal/netmon"
	"github.com/MKhiriev/go-checkin/internal/queue"
	"github.com/MKhiriev/go-checkin/internal/store"
	"github.com/MKhiriev/go-checkin/models"
)

// ClientServices groups the client use cases.
type ClientServices struct {
	AuthService    ClientAuthService
	CheckinService ClientCheckinService
	TicketService  ClientTicketService
	SyncService    ClientSyncService
	SyncJob        ClientSyncJob
}

// NewClientServices wires every client service around the shared queue,
// cache and network monitor.
func NewClientServices(
	localStore *store.ClientStorages,
	serverAdapter adapter.ServerAdapter,
	actionQueue *queue.Queue,
	tickets *cache.Store[models.Ticket],
	monitor *netmon.Monitor,
	syncCfg config.Sync,
	log *logger.Logger,
	opts ...SyncOption,
) *ClientServices {
	syncSvc := NewClientSyncService(
		actionQueue,
		monitor,
		tickets,
		NewHandlerRegistry(serverAdapter),
		syncCfg,
		log.Component("sync"),
		opts...,
	)

	return &ClientServices{
		AuthService:    NewClientAuthService(localStore, serverAdapter, log.Component("auth")),
		CheckinService: NewClientCheckinService(serverAdapter, actionQueue, monitor, tickets, log.Component("checkin")),
		TicketService:  NewClientTicketService(serverAdapter, tickets, actionQueue, monitor, 0, log.Component("tickets")),
		SyncService:    syncSvc,
		SyncJob:        NewClientSyncJob(syncSvc, monitor, log.Component("sync_job")),
	}
}
