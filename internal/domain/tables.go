package domain

var Tables = []interface{}{
	&Admin{},
	&Contact{},
	&Message{},
	&Session{},
}
