package reconcile

// TryAssign assigns fieldID to header. When the field is free or already
// held by header the assignment is committed, header leaves change mode, and
// the returned conflict is nil. When another column holds the field nothing
// is committed; a DuplicationConflict is opened and returned instead.
//
// TryAssign fails with an *InvalidStateError while a conflict is open.
func (s *Session) TryAssign(header, fieldID string) (*DuplicationConflict, error) {
	if err := s.requireNoConflict("TryAssign"); err != nil {
		return nil, err
	}
	if err := s.requireColumn(header); err != nil {
		return nil, err
	}
	field, ok := s.Field(fieldID)
	if !ok {
		return nil, unknownField(fieldID)
	}

	holder, held := s.Holder(fieldID)
	if !held || holder == header {
		s.assignment[header] = fieldID
		s.exitChangeModeFor(header)
		s.nav.InvalidateLayout()
		return nil, nil
	}

	c := &DuplicationConflict{
		Field:    field,
		HeaderA:  holder,
		HeaderB:  header,
		PreviewA: s.table.PreviewOf(holder),
		PreviewB: s.table.PreviewOf(header),
	}
	s.mode = ResolvingConflict{Conflict: c}
	s.logger.Debug("duplication conflict opened",
		"session", s.id,
		"field", fieldID,
		"incumbent", holder,
		"requester", header)

	return c, nil
}

// SelectHeaderToResolve records which of the two conflicting headers should
// keep the field. Nothing is committed until Resolve.
func (s *Session) SelectHeaderToResolve(header string) error {
	c := s.Conflict()
	if c == nil {
		return invalidState("SelectHeaderToResolve", s)
	}
	if !c.involves(header) {
		return unknownColumn(header)
	}
	c.Selected = header
	return nil
}

// Resolve commits the selected header of the open conflict: it receives the
// field and the other header becomes unmatched. It fails with an
// *InvalidStateError when no conflict is open or no header was selected.
func (s *Session) Resolve() error {
	c := s.Conflict()
	if c == nil || c.Selected == "" {
		return invalidState("Resolve", s)
	}

	loser := c.Other(c.Selected)
	delete(s.assignment, loser)
	s.assignment[c.Selected] = c.Field.ID
	s.mode = Idle{}
	s.nav.InvalidateLayout()

	s.logger.Debug("duplication conflict resolved",
		"session", s.id,
		"field", c.Field.ID,
		"winner", c.Selected,
		"cleared", loser)

	return nil
}

// Cancel discards the open conflict without changing any assignment.
func (s *Session) Cancel() error {
	c := s.Conflict()
	if c == nil {
		return invalidState("Cancel", s)
	}
	s.mode = Idle{}
	s.logger.Debug("duplication conflict cancelled", "session", s.id, "field", c.Field.ID)
	return nil
}
