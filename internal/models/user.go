// Package models はユーザーとタスクのエンティティを定義します。
package models

import "time"

// User はアカウント情報です。PasswordHash 以外は登録後に変更しません。
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:20;not null"`
	Email        string `gorm:"uniqueIndex;size:254;not null"`
	PasswordHash string `gorm:"not null"`
	Tasks        []Task `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName はテーブル名を返します。
func (User) TableName() string {
	return "users"
}
