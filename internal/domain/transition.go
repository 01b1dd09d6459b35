package domain

// TransitionTable es la lista explícita de transiciones legales de una máquina de estados:
// estado origen → estados destino permitidos. Lo que no aparece es ilegal.
// La comparten InventoryUnit, TransactionHeader y RentalReturn.
type TransitionTable[S comparable] map[S][]S

// Allows indica si from → to está en la lista permitida.
func (t TransitionTable[S]) Allows(from, to S) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal indica que el estado no tiene salidas en la tabla.
func (t TransitionTable[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}
