package models

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Organization{},
		&OrganizationMember{},
		&Employee{},
		&Task{},
		&PauseRecord{},
		&TaskPhoto{},
		&TaskComment{},
		&BotSession{},
	}
}
