package domain

import "fmt"

// Result is the platform's result code for login and connection callbacks.
type Result int

const (
	ResultInvalid              Result = 0
	ResultOK                   Result = 1
	ResultFail                 Result = 2
	ResultNoConnection         Result = 3
	ResultInvalidPassword      Result = 5
	ResultServiceUnavailable   Result = 20
	ResultAccountLogonDenied   Result = 63
	ResultInvalidLoginAuthCode Result = 65
)

var resultNames = map[Result]string{
	ResultInvalid:              "Invalid",
	ResultOK:                   "OK",
	ResultFail:                 "Fail",
	ResultNoConnection:         "NoConnection",
	ResultInvalidPassword:      "InvalidPassword",
	ResultServiceUnavailable:   "ServiceUnavailable",
	ResultAccountLogonDenied:   "AccountLogonDenied",
	ResultInvalidLoginAuthCode: "InvalidLoginAuthCode",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// ChatEntryType distinguishes chat messages from typing notifications and the like.
type ChatEntryType int

const (
	ChatEntryInvalid ChatEntryType = iota
	ChatEntryMessage
	ChatEntryTyping
	ChatEntryEmote
	ChatEntryLeftConversation
)

// Relationship is the friendship state reported in friends list updates.
type Relationship int

const (
	RelationshipNone Relationship = iota
	RelationshipBlocked
	RelationshipRequestRecipient
	RelationshipFriend
	RelationshipRequestInitiator
	RelationshipIgnored
)

// PersonaState is the presence status shown to other users.
type PersonaState int

const (
	PersonaOffline PersonaState = iota
	PersonaOnline
	PersonaBusy
	PersonaAway
)

// TradeResponse is the platform's answer to a live trade request.
type TradeResponse int

const (
	TradeResponseAccepted TradeResponse = iota
	TradeResponseDeclined
	TradeResponseTradeBannedInitiator
	TradeResponseTradeBannedTarget
	TradeResponseTargetAlreadyTrading
	TradeResponseDisabled
	TradeResponseNotLoggedIn
	TradeResponseCancel
	TradeResponseTooSoon
)

var tradeResponseNames = map[TradeResponse]string{
	TradeResponseAccepted:             "Accepted",
	TradeResponseDeclined:             "Declined",
	TradeResponseTradeBannedInitiator: "TradeBannedInitiator",
	TradeResponseTradeBannedTarget:    "TradeBannedTarget",
	TradeResponseTargetAlreadyTrading: "TargetAlreadyTrading",
	TradeResponseDisabled:             "Disabled",
	TradeResponseNotLoggedIn:          "NotLoggedIn",
	TradeResponseCancel:               "Cancel",
	TradeResponseTooSoon:              "TooSoon",
}

func (r TradeResponse) String() string {
	if name, ok := tradeResponseNames[r]; ok {
		return name
	}
	return fmt.Sprintf("TradeResponse(%d)", int(r))
}
