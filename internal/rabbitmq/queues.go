package rabbitmq

// Ключи маршрутизации заданий.
const (
	RoutingBroadcast = "broadcast"
	RoutingExpiring  = "expiring"
)

// Очереди заданий.
const (
	QueueBroadcast = "notifications.broadcast"
	QueueExpiring  = "notifications.expiring"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueBroadcast, RoutingKey: RoutingBroadcast},
		{QueueName: QueueExpiring, RoutingKey: RoutingExpiring},
	}
}
