// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

package eventbus

import (
	"testing"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/models"
)

func TestNotificationSubject(t *testing.T) {
	tests := []struct {
		prefix string
		typ    models.NotificationType
		want   string
	}{
		{"taskflow", models.NotificationTaskAssigned, "taskflow.notification.created.task_assigned"},
		{"taskflow", models.NotificationCommentAdded, "taskflow.notification.created.comment_added"},
		{"staging", models.NotificationSystemAlert, "staging.notification.created.system_alert"},
	}

	for _, tt := range tests {
		if got := NotificationSubject(tt.prefix, tt.typ); got != tt.want {
			t.Errorf("NotificationSubject(%q, %q) = %q, want %q", tt.prefix, tt.typ, got, tt.want)
		}
	}
}

func TestNotificationWildcard(t *testing.T) {
	if got := NotificationWildcard("taskflow"); got != "taskflow.notification.created.>" {
		t.Errorf("NotificationWildcard() = %q", got)
	}
}
