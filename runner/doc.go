/*
 * doc.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package runner runs a job: every dislocation monopole calculation (one potential,
//one crystal, one dislocation variant) and, optionally, a cohesive energy scan per
//potential. Units run concurrently in a bounded pool, each in its own scratch
//directory, which is removed when the unit succeeds and kept when it fails. Results
//are written as JSON records, and the records and artifacts are published to a blob store.
package runner
